package schema

// NewRegistry builds the registry of section schemas. This is the single
// source of truth for recognized keys, defaults and constraints.
func NewRegistry() *Registry {
	r := &Registry{
		sections: make(map[SectionKind][]Entry),
		models:   make(map[string]ModelVariant),
		layers:   make(map[string][]Entry),
	}

	registerProblemEntries(r)
	registerSamplerEntries(r)
	registerOptimizerEntries(r)
	registerTerminalConditionEntries(r)
	registerModelEntries(r)
	registerLayerSchemas(r)

	return r
}

func registerProblemEntries(r *Registry) {
	r.sections[Problem] = []Entry{
		{Key: "name", Type: TypeString, Required: true},
		{Key: "batch_size", Type: TypeInt, Required: true, Check: nonNegativeInt},
		{Key: "data_folder", Type: TypeString, Default: "~/data/mnist"},
		{Key: "use_train_data", Type: TypeBool, Default: true},
		{Key: "resize", Type: TypeIntPair},
		{Key: "split", Type: TypeString},
		{Key: "dataset_size", Type: TypeInt, Check: nonNegativeInt},
		{Key: "regenerate", Type: TypeBool, Default: false},
		{Key: "img_size", Type: TypeIntPair},
		{Key: "padding", Type: TypeInt, Default: 0, Check: nonNegativeInt},
		{Key: "up_scaling", Type: TypeBool, Default: false},
	}
}

func registerSamplerEntries(r *Registry) {
	r.sections[Sampler] = []Entry{
		{
			Key:      "name",
			Type:     TypeString,
			Required: true,
			Enum: []string{
				"SubsetRandomSampler",
				"RandomSampler",
				"SequentialSampler",
				"WeightedRandomSampler",
			},
		},
		{Key: "indices", Type: TypeIndices},
	}
}

func registerOptimizerEntries(r *Registry) {
	r.sections[Optimizer] = []Entry{
		{
			Key:      "name",
			Type:     TypeString,
			Required: true,
			Enum:     []string{"Adam", "AdamW", "SGD", "RMSprop", "Adagrad"},
		},
		{Key: "lr", Type: TypeFloat, Required: true, Check: positiveFloat},
		{Key: "gradient_clipping", Type: TypeFloat, Check: positiveFloat},
	}
}

func registerTerminalConditionEntries(r *Registry) {
	r.sections[TerminalConditions] = []Entry{
		{Key: "loss_stop", Type: TypeFloat, Default: 1e-5, Check: positiveFloat},
		{Key: "episode_limit", Type: TypeInt, Check: nonNegativeInt},
		{Key: "epoch_limit", Type: TypeInt, Check: nonNegativeInt},
		{Key: "validation_interval", Type: TypeInt, Default: 100, Check: positiveInt},
	}
}

func registerModelEntries(r *Registry) {
	r.sections[Model] = []Entry{
		{
			Key:      "name",
			Type:     TypeString,
			Required: true,
			Enum:     []string{"SimpleConvNet", "RelationalNetwork", "LeNet5"},
		},
	}

	r.models["SimpleConvNet"] = ModelVariant{
		Name: "SimpleConvNet",
		RequiredBlocks: map[string]string{
			"conv1":    "conv",
			"conv2":    "conv",
			"maxpool1": "pool",
			"maxpool2": "pool",
		},
	}
	r.models["RelationalNetwork"] = ModelVariant{
		Name:       "RelationalNetwork",
		Permissive: true,
	}
	r.models["LeNet5"] = ModelVariant{
		Name:       "LeNet5",
		Permissive: true,
	}
}

func registerLayerSchemas(r *Registry) {
	r.layers["conv"] = []Entry{
		{Key: "out_channels", Type: TypeInt, Required: true, Check: positiveInt},
		{Key: "kernel_size", Type: TypeInt, Required: true, Check: positiveInt},
		{Key: "stride", Type: TypeInt, Default: 1, Check: positiveInt},
		{Key: "padding", Type: TypeInt, Default: 0, Check: nonNegativeInt},
	}
	r.layers["pool"] = []Entry{
		{Key: "kernel_size", Type: TypeInt, Required: true, Check: positiveInt},
		{Key: "stride", Type: TypeInt, Check: positiveInt},
	}
}
