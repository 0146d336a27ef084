package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskscale/pkg/cli"
	"github.com/secmon-lab/riskscale/pkg/cli/config"
)

const validConfig = `
name = "Default"
impact_scale_max = 3
probability_scale_max = 3
calculation_method = "avg"

[[impacts]]
label = "Minor"
score = 1

[[impacts]]
label = "Moderate"
score = 2

[[impacts]]
label = "Severe"
score = 3

[[probabilities]]
label = "Rare"
score = 1

[[probabilities]]
label = "Possible"
score = 2

[[probabilities]]
label = "Likely"
score = 3

[[score_levels]]
label = "Low"
min = 1
max = 3

[[score_levels]]
label = "Medium"
min = 4
max = 6

[[score_levels]]
label = "High"
min = 7
max = 9
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "risk.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestRun_ValidateCommand_ValidConfig(t *testing.T) {
	path := writeConfig(t, validConfig)

	err := cli.Run(context.Background(), []string{"riskscale", "validate", "--file", path}, "test")
	gt.NoError(t, err)
}

func TestRun_ValidateCommand_InvalidConfig(t *testing.T) {
	// three impacts on a scale of four
	content := strings.Replace(validConfig, "impact_scale_max = 3", "impact_scale_max = 4", 1)
	path := writeConfig(t, content)

	err := cli.Run(context.Background(), []string{"riskscale", "validate", "--file", path}, "test")
	gt.Error(t, err).Is(config.ErrInvalidConfig)
}

func TestRun_ValidateCommand_MissingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.toml")

	err := cli.Run(context.Background(), []string{"riskscale", "validate", "--file", path}, "test")
	gt.Error(t, err).Is(config.ErrConfigNotFound)
}

func TestRun_ValidateCommand_NoTarget(t *testing.T) {
	err := cli.Run(context.Background(), []string{"riskscale", "validate"}, "test")
	gt.Error(t, err).Is(config.ErrInvalidConfig)
}

func TestRun_ImportThenValidateStored(t *testing.T) {
	path := writeConfig(t, validConfig)
	dbPath := filepath.Join(t.TempDir(), "riskscale.db")
	repoArgs := []string{"--repository-backend", "sqlite", "--sqlite-path", dbPath}

	args := append([]string{"riskscale", "import", "--file", path, "--org", "acme", "--activate"}, repoArgs...)
	gt.NoError(t, cli.Run(context.Background(), args, "test")).Required()

	args = append([]string{"riskscale", "validate", "--org", "acme"}, repoArgs...)
	gt.NoError(t, cli.Run(context.Background(), args, "test"))
}

func TestRun_ImportCommand_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `
name = ""
impact_scale_max = 3
probability_scale_max = 3
calculation_method = "max"
`)

	err := cli.Run(context.Background(), []string{
		"riskscale", "import", "--file", path, "--org", "acme", "--repository-backend", "memory",
	}, "test")
	gt.Value(t, err).NotNil()
}

func TestRun_MigrateCommand_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "riskscale.db")

	err := cli.Run(context.Background(), []string{
		"riskscale", "migrate", "--repository-backend", "sqlite", "--sqlite-path", dbPath,
	}, "test")
	gt.NoError(t, err).Required()

	_, err = os.Stat(dbPath)
	gt.NoError(t, err)
}
