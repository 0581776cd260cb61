package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/kittipatv/should-i-move/agent/contract"
	openrouterx "github.com/kittipatv/should-i-move/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"3000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.4"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"120s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	CostModel        string  `envconfig:"COST_MODEL" split_words:"true"`
	SentimentModel   string  `envconfig:"SENTIMENT_MODEL" split_words:"true"`
	MigrationModel   string  `envconfig:"MIGRATION_MODEL" split_words:"true"`
	ElicitModel      string  `envconfig:"ELICIT_MODEL" split_words:"true"`
	CostTemperature  float32 `envconfig:"COST_TEMPERATURE" split_words:"true" default:"-1"`
	ElicitTemperature float32 `envconfig:"ELICIT_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contract.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contract.ErrValidation)
	}
	return nil
}

// Role selects a model override for one of the reasoning roles.
type Role string

const (
	RoleCost      Role = "cost"
	RoleSentiment Role = "sentiment"
	RoleMigration Role = "migration"
	RoleElicit    Role = "elicit"
)

func (c Config) OpenRouterFor(role Role) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch role {
	case RoleCost:
		if v := strings.TrimSpace(c.CostModel); v != "" {
			modelName = v
		}
		if c.CostTemperature >= 0 {
			temp = c.CostTemperature
		}
	case RoleSentiment:
		if v := strings.TrimSpace(c.SentimentModel); v != "" {
			modelName = v
		}
	case RoleMigration:
		if v := strings.TrimSpace(c.MigrationModel); v != "" {
			modelName = v
		}
	case RoleElicit:
		if v := strings.TrimSpace(c.ElicitModel); v != "" {
			modelName = v
		}
		if c.ElicitTemperature >= 0 {
			temp = c.ElicitTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
