package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskscale/pkg/cli/config"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

const threeByThree = `
name = "Default"
impact_scale_max = 3
probability_scale_max = 3
calculation_method = "max"

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
order = 3

[[score_levels]]
label = "Low"
min = 1
max = 3
color = "#22c55e"

[[score_levels]]
label = "Medium"
min = 4
max = 6
color = "#eab308"

[[score_levels]]
label = "High"
min = 7
max = 9
color = "#ef4444"
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "risk.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestLoadRiskConfigFile(t *testing.T) {
	t.Run("valid file converts to input", func(t *testing.T) {
		file, err := config.LoadRiskConfigFile(writeFile(t, threeByThree))
		gt.NoError(t, err).Required()

		in := file.ToInput()
		gt.Value(t, in.Name).Equal("Default")
		gt.Value(t, in.CalculationMethod).Equal(types.CalculationMethodMax)
		gt.Array(t, in.Impacts).Length(3).Required()
		gt.Array(t, in.Probabilities).Length(3).Required()
		gt.Array(t, in.ScoreLevels).Length(3).Required()

		// positional order when omitted
		gt.Number(t, in.Impacts[0].Order).Equal(1)
		gt.Number(t, in.Impacts[2].Order).Equal(3)
		gt.Number(t, in.Probabilities[2].Order).Equal(3)
		gt.Number(t, in.ScoreLevels[1].Order).Equal(2)

		gt.Array(t, model.ValidateConfiguration(in)).Length(0)
	})

	t.Run("criteria are decoded with nested impacts", func(t *testing.T) {
		content := "use_criterias = true\n" + threeByThree + `
[[criterias]]
name = "Financial"
description = "Monetary loss"

  [[criterias.impacts]]
  impact_label = "Minor"
  score = 1

  [[criterias.impacts]]
  impact_label = "Severe"
  score = 3
  impact_level_order = 3
`
		file, err := config.LoadRiskConfigFile(writeFile(t, content))
		gt.NoError(t, err).Required()

		in := file.ToInput()
		gt.Bool(t, in.UseCriterias).True()
		gt.Array(t, in.Criterias).Length(1).Required()
		gt.Value(t, in.Criterias[0].Name).Equal("Financial")
		gt.Number(t, in.Criterias[0].Order).Equal(1)
		gt.Array(t, in.Criterias[0].Impacts).Length(2).Required()
		gt.Number(t, in.Criterias[0].Impacts[1].Order).Equal(2)
		gt.Number(t, in.Criterias[0].Impacts[1].ImpactLevelOrder).Equal(3)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadRiskConfigFile(filepath.Join(t.TempDir(), "missing.toml"))
		gt.Error(t, err).Is(config.ErrConfigNotFound)
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		_, err := config.LoadRiskConfigFile(writeFile(t, "name = \"x\"\nimpact_scale = 3\n"))
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("malformed TOML", func(t *testing.T) {
		_, err := config.LoadRiskConfigFile(writeFile(t, "name = \n"))
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestSlackConfigure(t *testing.T) {
	t.Run("not configured returns nil notifier", func(t *testing.T) {
		n, err := config.NewSlackForTest("", "").Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, n).Nil()
	})

	t.Run("token without channel is invalid", func(t *testing.T) {
		_, err := config.NewSlackForTest("xoxb-test", "").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("configured returns notifier", func(t *testing.T) {
		s := config.NewSlackForTest("xoxb-test", "C0123456")
		gt.Bool(t, s.IsConfigured()).True()
		n, err := s.Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, n).NotNil()
	})

	t.Run("log value hides the token", func(t *testing.T) {
		v := config.NewSlackForTest("xoxb-secret", "C0123456").LogValue()
		gt.Bool(t, strings.Contains(v.String(), "xoxb-secret")).False()
	})
}

func TestRepositoryConfigure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest(config.BackendMemory, "").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "riskscale.db")
		repo, err := config.NewRepositoryForTest(config.BackendSQLite, path).Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())

		_, err = os.Stat(path)
		gt.NoError(t, err)
	})

	t.Run("firestore requires project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest(config.BackendFirestore, "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("postgres", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestLoggerConfigure(t *testing.T) {
	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		closer, err := config.NewLoggerForTest("debug", "json", path).Configure()
		gt.NoError(t, err).Required()
		closer()
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := config.NewLoggerForTest("verbose", "console", "stdout").Configure()
		gt.Value(t, err).NotNil()
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "stdout").Configure()
		gt.Value(t, err).NotNil()
	})
}

func TestConfigErrors(t *testing.T) {
	gt.Bool(t, errors.Is(config.ErrConfigNotFound, config.ErrInvalidConfig)).False()
}
