package application

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/sirupsen/logrus"
)

const DefaultWinningPhrase = "I love you"

// Conversant is the part of OracleSessionClient a challenge agent needs.
type Conversant interface {
	Converse(ctx context.Context, modelID *big.Int, prompt string, fee *big.Int, opts ListenOptions) (*string, domain.Receipt, error)
}

type Agent struct {
	Name         string
	SystemPrompt string
	Client       Conversant

	response string
	won      bool
}

func NewAgent(name string, systemPrompt string, client Conversant) *Agent {
	return &Agent{Name: name, SystemPrompt: systemPrompt, Client: client}
}

func (a *Agent) Won() bool {
	return a.won
}

func (a *Agent) Response() string {
	return a.response
}

type AgentOutcome struct {
	Name     string `json:"name"`
	Response string `json:"response"`
	Won      bool   `json:"won"`
	Error    string `json:"error,omitempty"`
}

type ChallengeOutcome struct {
	UserWins bool           `json:"user_wins"`
	Agents   []AgentOutcome `json:"agents"`
}

// Challenge asks every agent the same prompt until each one says the winning phrase.
type Challenge struct {
	agents []*Agent
	phrase string
	listen ListenOptions
	log    logrus.FieldLogger
}

type ChallengeOption func(*Challenge)

func WithWinningPhrase(phrase string) ChallengeOption {
	return func(c *Challenge) {
		if strings.TrimSpace(phrase) != "" {
			c.phrase = phrase
		}
	}
}

func WithChallengeListenOptions(opts ListenOptions) ChallengeOption {
	return func(c *Challenge) { c.listen = opts }
}

func WithChallengeLogger(logger logrus.FieldLogger) ChallengeOption {
	return func(c *Challenge) { c.log = logger }
}

func NewChallenge(agents []*Agent, opts ...ChallengeOption) *Challenge {
	c := &Challenge{
		agents: agents,
		phrase: DefaultWinningPhrase,
		listen: ListenOptions{MaxRetries: 10, Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = loggerOrDiscard(c.log)

	return c
}

// Round gives every agent that has not won yet one turn. Agent faults are
// logged and count as no result.
func (c *Challenge) Round(ctx context.Context, prompt string, modelID *big.Int, fee *big.Int) (ChallengeOutcome, error) {
	c.log.Info("starting the challenge")

	outcome := ChallengeOutcome{Agents: make([]AgentOutcome, 0, len(c.agents))}
	for _, agent := range c.agents {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		entry := AgentOutcome{Name: agent.Name}
		if !agent.won {
			log := c.log.WithField("agent", agent.Name)
			log.WithField("system_prompt", agent.SystemPrompt).Info("agent taking its turn")

			result, _, err := agent.Client.Converse(ctx, modelID, prompt, fee, c.listen)
			switch {
			case err != nil:
				log.WithError(err).Error("agent request failed")
				entry.Error = err.Error()
			case result == nil:
				log.Warn("agent did not receive any result")
			default:
				log.WithField("result", *result).Info("agent received result")
				agent.response = *result
				agent.won = strings.Contains(*result, c.phrase)
			}
		}

		entry.Response = agent.response
		entry.Won = agent.won
		outcome.Agents = append(outcome.Agents, entry)
	}

	outcome.UserWins = len(c.agents) > 0
	for _, agent := range c.agents {
		if !agent.won {
			outcome.UserWins = false
			break
		}
	}

	if outcome.UserWins {
		c.log.Info("all agents said the winning phrase")
	}
	return outcome, nil
}
