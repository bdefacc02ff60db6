package services

import (
	"fmt"
	"strings"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// SchemaConfigKey is the trigger config key holding a JSON schema for the trigger data.
const SchemaConfigKey = "schema"

// validateTriggerData checks data against the schema of every trigger node that declares one.
func validateTriggerData(wf *models.Workflow, data models.Payload) error {
	for _, trigger := range wf.TriggerNodes() {
		schema, ok := trigger.Config[SchemaConfigKey]
		if !ok || schema == nil {
			continue
		}

		result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(data))
		if err != nil {
			return NewValidationError("Run", "invalid_schema",
				fmt.Sprintf("trigger %s: %v", trigger.ID, err), ErrInvalidSchema)
		}

		if !result.Valid() {
			details := make([]string, 0, len(result.Errors()))
			for _, resultErr := range result.Errors() {
				details = append(details, resultErr.String())
			}

			return NewValidationError("Run", "invalid_trigger_data",
				fmt.Sprintf("trigger %s: %s", trigger.ID, strings.Join(details, "; ")), ErrTriggerDataInvalid)
		}
	}

	return nil
}
