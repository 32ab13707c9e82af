package main

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/SunnyShi051223/OS-Design/memutils/metadata"
	"github.com/SunnyShi051223/OS-Design/sam"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const shellHelp = `Commands:
  init SIZE                      reset memory to SIZE free bytes
  request PID POLICY SIZE...     allocate one segment per SIZE (POLICY: first, best, worst)
  release PID                    free every segment of PID
  compact                        slide every segment toward address 0
  status                         print the memory map
  help                           print this message
  exit                           leave the shell
`

func newShellCmd(config *rootConfiguration) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive allocation session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(config, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			return sess.runShell(in, isTerminal(in))
		},
	}
}

func isTerminal(r io.Reader) bool {
	file, ok := r.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// runShell reads one command per line until exit or end of input. Errors are reported and the shell
// keeps going.
func (s *session) runShell(in io.Reader, prompt bool) error {
	scanner := bufio.NewScanner(in)

	for {
		if prompt {
			s.printer.Fprint(s.out, "segsim> ")
		}

		if !scanner.Scan() {
			return scanner.Err()
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "exit" || fields[0] == "quit" {
			return nil
		}

		err := s.runCommand(fields[0], fields[1:])
		if err != nil {
			s.printer.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

func (s *session) runCommand(verb string, args []string) error {
	switch verb {
	case opInit:
		values, err := parseInts(args, 1, 1)
		if err != nil {
			return err
		}
		return s.initMemory(values[0])

	case opRequest:
		if len(args) < 3 {
			return errors.New("usage: request PID POLICY SIZE...")
		}

		pid, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Wrapf(err, "invalid pid %q", args[0])
		}

		strategy, err := metadata.ParseAllocationStrategy(args[1])
		if err != nil {
			return err
		}

		sizes, err := parseInts(args[2:], 1, -1)
		if err != nil {
			return err
		}
		return s.request(sam.PID(pid), strategy, sizes)

	case opRelease:
		values, err := parseInts(args, 1, 1)
		if err != nil {
			return err
		}
		s.release(sam.PID(values[0]))
		return nil

	case opCompact:
		return s.compact()

	case opStatus:
		return s.status()

	case "help":
		s.printer.Fprint(s.out, shellHelp)
		return nil

	default:
		return errors.Newf("unknown command %q, try help", verb)
	}
}

// parseInts parses between minArgs and maxArgs integer arguments; a negative maxArgs means no upper bound
func parseInts(args []string, minArgs int, maxArgs int) ([]int, error) {
	if len(args) < minArgs || (maxArgs >= 0 && len(args) > maxArgs) {
		return nil, errors.Newf("expected %d argument(s), got %d", minArgs, len(args))
	}

	values := make([]int, 0, len(args))
	for _, arg := range args {
		value, err := strconv.Atoi(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid number %q", arg)
		}
		values = append(values, value)
	}

	return values, nil
}
