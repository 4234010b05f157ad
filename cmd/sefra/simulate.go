package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/guihenriquebr/sefra/pkg/acquisition"
	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/session"
)

// Commands accepted in place of a field value.
const (
	cmdBack = ":voltar"
	cmdQuit = ":sair"
)

// errAborted is returned when the user leaves the simulator.
var errAborted = errors.New("simulation aborted")

const brandColor = "#C80F15"

// simulator drives a session from a line-oriented terminal.
type simulator struct {
	manager *session.Manager
	in      *bufio.Scanner
	out     *termenv.Output
}

func newSimulator(m *session.Manager, r io.Reader, w io.Writer) *simulator {
	var out *termenv.Output
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		out = termenv.NewOutput(w)
	} else {
		out = termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
	}
	return &simulator{manager: m, in: bufio.NewScanner(r), out: out}
}

func (s *simulator) banner() {
	title := s.out.String("  SEFRA CORRETORA").Foreground(s.out.Color(brandColor)).Bold()
	sub := s.out.String("  Simulador de consórcio imobiliário").Faint()
	fmt.Fprintf(s.out, "\n%s\n%s\n", title, sub)
	fmt.Fprintf(s.out, "  %s volta um passo, %s encerra.\n\n", cmdBack, cmdQuit)
}

func (s *simulator) errorf(format string, args ...any) {
	fmt.Fprintln(s.out, s.out.String(fmt.Sprintf(format, args...)).Foreground(s.out.Color(brandColor)))
}

func (s *simulator) readLine(prompt string) (string, bool) {
	fmt.Fprint(s.out, prompt)
	if !s.in.Scan() {
		fmt.Fprintln(s.out)
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

// run opens a session and walks the wizard until success or abort.
func (s *simulator) run(ctx context.Context, params acquisition.Params) (*domain.State, error) {
	s.banner()

	created, err := s.manager.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	id := created.SessionID
	res, err := s.manager.Open(ctx, id, "cli")
	if err != nil {
		return nil, err
	}
	form := s.manager.Controller().Form()

	state := res.State
	for state.Status != domain.StatusSuccess {
		step, ok := form.Step(state.CurrentStep)
		if !ok {
			return state, fmt.Errorf("%w: no step %d", domain.ErrInvalidTransition, state.CurrentStep)
		}
		progress := s.manager.Controller().Progress(state)
		fmt.Fprintf(s.out, "%s  %s\n", s.out.String(progress.Label).Bold(), step.Title)

		values, cmd := s.collect(step)
		switch cmd {
		case cmdQuit:
			if _, err := s.manager.Close(ctx, id); err != nil {
				return nil, err
			}
			return nil, errAborted
		case cmdBack:
			if state.CurrentStep == 1 {
				s.errorf("Você já está no primeiro passo.")
				continue
			}
			if res, err = s.manager.Prev(ctx, id); err != nil {
				return nil, err
			}
			state = res.State
			continue
		}

		if state.CurrentStep == form.TotalSteps() {
			fmt.Fprintln(s.out, s.out.String("Enviando...").Faint())
			res, err = s.manager.Submit(ctx, id, values)
		} else {
			res, err = s.manager.Next(ctx, id, values)
		}

		var vErr *domain.ValidationError
		switch {
		case errors.As(err, &vErr):
			s.showErrors(step, vErr.Fields)
		case err != nil:
			return nil, err
		}
		state = res.State
		if state.Message != "" {
			s.errorf("%s", state.Message)
		}
		fmt.Fprintln(s.out)
	}

	done := s.out.String("Simulação enviada!").Foreground(s.out.Color(brandColor)).Bold()
	fmt.Fprintf(s.out, "%s Protocolo: %s\n", done, state.LeadID)
	fmt.Fprintln(s.out, "Um consultor da SEFRA entrará em contato em breve.")
	return state, nil
}

// collect prompts for every field of step. A command typed instead of a value
// stops the collection and is returned.
func (s *simulator) collect(step domain.Step) (map[string]string, string) {
	values := make(map[string]string, len(step.Fields))
	for _, f := range step.Fields {
		label := f.Label
		if label == "" {
			label = f.Name
		}
		if len(f.Options) > 0 {
			label += " (" + strings.Join(f.Options, "/") + ")"
		}
		if !f.Required {
			label += s.out.String(" [opcional]").Faint().String()
		}

		v, ok := s.readLine("  " + label + ": ")
		if !ok {
			return nil, cmdQuit
		}
		if v == cmdBack || v == cmdQuit {
			return nil, v
		}
		values[f.Name] = v
	}
	return values, ""
}

func (s *simulator) showErrors(step domain.Step, errs map[string]string) {
	// Field order of the step, then anything else alphabetically.
	seen := make(map[string]bool, len(errs))
	for _, f := range step.Fields {
		if msg, ok := errs[f.Name]; ok {
			s.errorf("  %s: %s", f.Label, msg)
			seen[f.Name] = true
		}
	}
	rest := make([]string, 0, len(errs))
	for k := range errs {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		s.errorf("  %s: %s", k, errs[k])
	}
}

// dryRun accepts every lead without network access.
type dryRun struct{}

func (dryRun) Submit(context.Context, string, domain.LeadRecord) (domain.LeadID, error) {
	return domain.LeadID(fmt.Sprintf("lead_%d", time.Now().UnixMilli())), nil
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Fill the consórcio simulator from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if cmd.Flags().Changed("endpoint") {
			a.cfg.Submission.Endpoint, _ = cmd.Flags().GetString("endpoint")
		}
		landing, _ := cmd.Flags().GetString("url")
		params, err := acquisition.ExtractURL(landing)
		if err != nil {
			return err
		}

		var submitter session.Submitter = dryRun{}
		if dry, _ := cmd.Flags().GetBool("dry-run"); !dry {
			pipeline, err := a.pipeline(a.transport(a.cfg.LeadEndpoint()))
			if err != nil {
				return err
			}
			submitter = pipeline
		}

		store, err := a.sessionStore()
		if err != nil {
			return err
		}
		manager, err := a.manager(store, submitter)
		if err != nil {
			return err
		}

		_, err = newSimulator(manager, cmd.InOrStdin(), cmd.OutOrStdout()).run(cmd.Context(), params)
		if errors.Is(err, errAborted) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("endpoint", "", "Lead endpoint (overrides submission.endpoint)")
	simulateCmd.Flags().String("url", "", "Landing URL whose UTM parameters are captured")
	simulateCmd.Flags().Bool("dry-run", false, "Accept the lead locally instead of posting it")
}
