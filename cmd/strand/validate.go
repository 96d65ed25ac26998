package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/strandkit/strand/pkg/expression"
	"github.com/strandkit/strand/pkg/log"
	"github.com/strandkit/strand/pkg/models"
	"github.com/strandkit/strand/pkg/registry"
	"github.com/strandkit/strand/pkg/validation"
)

func newValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a workflow definition file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the workflow definition JSON file",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))
			logger := log.WithModule("validate")

			def, err := loadDefinition(command.String("file"))
			if err != nil {
				return err
			}

			reg := registry.NewRegistry(logger)
			reg.RegisterDefaultNodes()

			validator := validation.NewValidator(reg, expression.NewEvaluator())

			result := validator.Validate(def)
			if result.OK() {
				fmt.Fprintf(command.Writer, "%s: valid\n", def.ID)
				return nil
			}

			for _, violation := range result.Violations {
				fmt.Fprintf(command.ErrWriter, "%s\n", violation.String())
			}

			return fmt.Errorf("definition has %d violations", len(result.Violations))
		},
	}
}

func loadDefinition(path string) (*models.WorkflowDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}

	var def models.WorkflowDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}

	return &def, nil
}
