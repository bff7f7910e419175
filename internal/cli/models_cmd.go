// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// =============================================================================
// MODELS COMMAND
// =============================================================================

// ModelsData is the --json form of "models".
type ModelsData struct {
	Provider string            `json:"provider"`
	Selected string            `json:"selected"`
	Models   []model.ModelInfo `json:"models"`
}

// HandleModels lists the provider's models or selects one.
func (a *App) HandleModels(ctx context.Context, args Args) error {
	sub := args.Sub
	switch sub.Subcommand() {
	case "", "list", "ls":
		return a.modelsList(ctx, args.JSON)
	case "use", "select":
		id := sub.Positional(1)
		if id == "" {
			return ErrMissingArgument("model id", "rigrun-chat models use llama3")
		}
		return a.modelsUse(ctx, id, sub.BoolFlag("force", "f"), args.JSON)
	default:
		return ErrUnknownSubcommand("models", sub.Subcommand())
	}
}

func (a *App) modelsList(ctx context.Context, jsonMode bool) error {
	settings := a.Holder.Settings()
	models, err := a.Fetcher.Fetch(ctx, settings)
	if err != nil {
		return NewCommandError("models", "list", err)
	}

	data := ModelsData{Provider: string(settings.Kind), Selected: settings.Model, Models: models}
	return printResult(a.Out, jsonMode, "models", data, func() {
		if len(models) == 0 {
			fmt.Fprintf(a.Out, "No models reported by %s at %s\n", settings.Kind, settings.Endpoint)
			return
		}
		for _, m := range models {
			mark := "  "
			if m.ID == settings.Model {
				mark = "* "
			}
			line := mark + util.PadWidth(m.ID, 40)
			if m.SupportsReasoning {
				line += " reasoning"
			}
			fmt.Fprintln(a.Out, line)
		}
	})
}

// modelsUse selects id. Unless force is set the id must be in the
// provider's catalog.
func (a *App) modelsUse(ctx context.Context, id string, force, jsonMode bool) error {
	if !force {
		models, err := a.Fetcher.Fetch(ctx, a.Holder.Settings())
		if err != nil {
			return NewCommandError("models", "use", err)
		}
		if !model.ContainsModel(models, id) {
			return &NotFoundError{Resource: "model", ID: id}
		}
	}
	if err := a.Holder.SetModel(id); err != nil {
		return NewCommandError("models", "use", err)
	}
	return printResult(a.Out, jsonMode, "models use", map[string]string{"selected": id}, func() {
		fmt.Fprintf(a.Out, "Selected model %s\n", id)
	})
}
