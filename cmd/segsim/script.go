package main

import (
	"io"
	"os"

	"github.com/SunnyShi051223/OS-Design/memutils/metadata"
	"github.com/SunnyShi051223/OS-Design/sam"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	opInit    = "init"
	opRequest = "request"
	opRelease = "release"
	opStatus  = "status"
	opCompact = "compact"
)

// script is a sequence of operations run against a single allocator. Memory and Policy, when set,
// override the command line defaults for the whole script.
type script struct {
	Memory int          `yaml:"memory"`
	Policy string       `yaml:"policy"`
	Steps  []scriptStep `yaml:"steps"`
}

type scriptStep struct {
	Op     string `yaml:"op"`
	PID    int    `yaml:"pid"`
	Sizes  []int  `yaml:"sizes"`
	Policy string `yaml:"policy"`
	Memory int    `yaml:"memory"`
}

func loadScript(r io.Reader) (*script, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var s script
	if err := decoder.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "parsing script")
	}

	return &s, nil
}

func newRunCmd(config *rootConfiguration) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.yaml>",
		Short: "Run a YAML script of init, request, release, compact and status operations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "opening script")
			}
			defer file.Close()

			s, err := loadScript(file)
			if err != nil {
				return err
			}

			if s.Memory != 0 {
				config.Memory = s.Memory
			}
			if s.Policy != "" {
				config.Policy = s.Policy
			}

			sess, err := newSession(config, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			return sess.runScript(s)
		},
	}
}

func (s *session) runScript(sc *script) error {
	for index, step := range sc.Steps {
		err := s.runStep(step)
		if err != nil {
			return errors.Wrapf(err, "step %d (%s)", index+1, step.Op)
		}
	}

	return nil
}

func (s *session) runStep(step scriptStep) error {
	switch step.Op {
	case opInit:
		return s.initMemory(step.Memory)
	case opRequest:
		strategy := s.strategy
		if step.Policy != "" {
			var err error
			strategy, err = metadata.ParseAllocationStrategy(step.Policy)
			if err != nil {
				return err
			}
		}
		return s.request(sam.PID(step.PID), strategy, step.Sizes)
	case opRelease:
		s.release(sam.PID(step.PID))
		return nil
	case opStatus:
		return s.status()
	case opCompact:
		return s.compact()
	default:
		return errors.Newf("unknown operation %q", step.Op)
	}
}
