package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/runoshun/adr-sync/internal/app"
	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/usecase"
)

// newSubmitCommand creates the submit command for creating a backend task.
func newSubmitCommand(c *app.Container) *cobra.Command {
	var (
		opts   trackOptions
		data   string
		detach bool
	)

	cmd := &cobra.Command{
		Use:   "submit <KIND>",
		Short: "Create a backend task and follow it",
		Long: `Create a backend task and follow it until it finishes.

KIND is one of analysis, generation or refinement. The request body is read
from --data (a file path, or - for stdin) and must be JSON; without --data an
empty object is sent.

With --detach the task id is printed and the command exits immediately.

Examples:
  # Start a generation and follow it
  adr-sync submit generation --data request.json

  # Submit from stdin and return at once
  echo '{"scope":"payments"}' | adr-sync submit analysis --data - --detach`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(args[0])
			if err != nil {
				return err
			}

			body, err := readBody(cmd.InOrStdin(), data)
			if err != nil {
				return err
			}

			out, err := c.SubmitTaskUseCase().Execute(cmd.Context(), usecase.SubmitTaskInput{
				Kind: kind,
				Body: body,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s task %s\n", kind, out.Created.TaskID)
			if detach {
				return nil
			}
			return runTrack(cmd, c, kind, out.Created, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body file (- for stdin)")
	cmd.Flags().BoolVar(&detach, "detach", false, "Print the task id and exit without following")

	return cmd
}

// readBody loads the request body from path, or stdin for "-".
func readBody(stdin io.Reader, path string) ([]byte, error) {
	var (
		body []byte
		err  error
	)
	switch path {
	case "":
		return nil, nil
	case "-":
		body, err = io.ReadAll(stdin)
	default:
		body, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if !json.Valid(body) {
		return nil, errors.New("request body is not valid JSON")
	}
	return body, nil
}
