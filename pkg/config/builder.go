package config

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/trainforge/trainforge/pkg/document"
	"github.com/trainforge/trainforge/pkg/errors"
)

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func getStructValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		structValidator = validator.New()
	})
	return structValidator
}

// buildResolved assembles validated merged phase trees and the shared model
// into the immutable ResolvedConfig. Values are converted into typed form;
// no raw node is carried over by reference.
func buildResolved(runID string, phases map[PhaseName]*document.Node, model, settings *document.Node) (*ResolvedConfig, error) {
	if _, ok := phases[Training]; !ok {
		return nil, errors.New(errors.IncompleteConfig, "training phase is required")
	}

	out := &ResolvedConfig{
		runID:  runID,
		phases: make(map[PhaseName]PhaseConfig, len(phases)),
	}

	for name, node := range phases {
		var pc PhaseConfig
		if err := node.Decode(&pc); err != nil {
			return nil, errors.Wrap(err, errors.InvalidInput,
				fmt.Sprintf("converting %s phase to typed form", name))
		}
		out.phases[name] = pc
	}

	if model != nil {
		if err := model.Decode(&out.model); err != nil {
			return nil, errors.Wrap(err, errors.InvalidInput, "converting model to typed form")
		}
	}

	if settings != nil {
		var sc SettingsConfig
		if err := settings.Decode(&sc); err != nil {
			return nil, errors.Wrap(err, errors.InvalidInput, "converting settings to typed form")
		}
		out.settings = &sc
	}

	// Schema validation already ran on the raw trees; this guards the typed
	// conversion itself.
	v := getStructValidator()
	for name, pc := range out.phases {
		if err := v.Struct(pc); err != nil {
			return nil, errors.Wrap(err, errors.ValidationFailed,
				fmt.Sprintf("typed check of %s phase", name))
		}
	}
	if err := v.Struct(out.model); err != nil {
		return nil, errors.Wrap(err, errors.ValidationFailed, "typed check of model")
	}

	return out, nil
}
