package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/harrison/researchflow/internal/models"
)

// loadRequestFile reads a request document. YAML is a superset of JSON, so
// both formats decode here.
func loadRequestFile(path string) (models.WorkflowRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.WorkflowRequest{}, fmt.Errorf("read request file: %w", err)
	}
	var req models.WorkflowRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return models.WorkflowRequest{}, fmt.Errorf("parse request file %s: %w", path, err)
	}
	return req, nil
}
