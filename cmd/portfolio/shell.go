package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/princekumarofficial/portfolio-studio/internal/events"
	"github.com/princekumarofficial/portfolio-studio/internal/files"
	"github.com/princekumarofficial/portfolio-studio/internal/intake"
	"github.com/princekumarofficial/portfolio-studio/internal/portfolio"
	"github.com/princekumarofficial/portfolio-studio/internal/preview"
	"github.com/princekumarofficial/portfolio-studio/internal/types"
)

const (
	maxTitleLength       = 80
	maxDescriptionLength = 150
)

const shellHelp = `Commands:
  select <path>         pick a file to upload
  title <text>          set the title (max 80 characters)
  description <text>    set the description (max 150 characters)
  category <text>       set the category
  submit                upload the selected file
  clear                 drop the selected file
  status                show the intake form and portfolio state
  list                  show the working set
  save                  save the working set
  load                  reload the saved portfolio, discarding edits
  delete <id>           delete an item
  help                  show this help
  exit                  leave the shell`

func newShellCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive portfolio editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app) error {
				return runShell(cmd.Context(), a)
			})
		},
	}
}

// shell owns one store and one intake session for its whole lifetime.
type shell struct {
	app *app

	// outMu serializes writes from the REPL, the notification printer and
	// probe callbacks.
	outMu sync.Mutex
	out   io.Writer

	store   *portfolio.Store
	session *intake.Session
	notes   *events.ChannelPublisher
}

func newShell(a *app, provider preview.Provider, out io.Writer, extra ...events.Publisher) *shell {
	notes := events.NewChannelPublisher(64)
	publisher := append(events.Fanout{notes, events.NewLogPublisher(a.logger)}, extra...)

	s := &shell{
		app:   a,
		out:   out,
		notes: notes,
		store: portfolio.NewStore(a.cfg.UserID, a.remote, publisher, a.logger),
	}
	s.session = intake.NewSession(intake.Options{
		Policy:     a.policy,
		Preview:    preview.NewManager(provider, a.logger),
		Prober:     a.prober,
		Creator:    a.remote,
		Sink:       s.store,
		Publisher:  publisher,
		Logger:     a.logger,
		OnMetadata: s.printMetadata,
	})
	return s
}

func runShell(ctx context.Context, a *app) error {
	provider, err := a.withPreview(ctx)
	if err != nil {
		return err
	}

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".portfolio-history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "portfolio> ",
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		AutoComplete:      completer(),
		Stdin:             readline.NewCancelableStdin(os.Stdin),
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	var extra []events.Publisher
	if addr := strings.TrimSpace(a.cfg.Notify.Addr); addr != "" {
		hub, stop := serveNotifications(ctx, addr, a.logger)
		defer stop()
		extra = append(extra, hub)
	}

	s := newShell(a, provider, rl.Stdout(), extra...)
	defer s.session.Close(context.Background())

	done := make(chan struct{})
	defer close(done)
	go s.printNotifications(done)

	s.store.LoadPortfolio(ctx)

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if quit := s.exec(ctx, line); quit {
			return nil
		}
	}
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("select"),
		readline.PcItem("title"),
		readline.PcItem("description"),
		readline.PcItem("category"),
		readline.PcItem("submit"),
		readline.PcItem("clear"),
		readline.PcItem("status"),
		readline.PcItem("list"),
		readline.PcItem("save"),
		readline.PcItem("load"),
		readline.PcItem("delete"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

func (s *shell) printf(format string, args ...interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func (s *shell) printNotifications(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case e := <-s.notes.Events():
			s.printNotification(e)
		}
	}
}

func (s *shell) printNotification(e *types.Event) {
	s.printf("[%s] %s\n", e.Level, e.Message)
}

func (s *shell) printMetadata(view intake.View) {
	if view.File == nil {
		return
	}
	switch {
	case view.Metadata.Dimensions != "":
		s.printf("%s: %s\n", view.File.Name, view.Metadata.Dimensions)
	case view.Metadata.Duration != "":
		s.printf("%s: %s\n", view.File.Name, view.Metadata.Duration)
	}
}

// splitCommand separates the verb from the raw remainder of the line.
func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	verb, rest, _ := strings.Cut(line, " ")
	return strings.ToLower(verb), strings.TrimSpace(rest)
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func truncateRunes(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	return string([]rune(s)[:max]), true
}

// exec runs one shell line and reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, line string) bool {
	verb, arg := splitCommand(line)

	switch verb {
	case "":
	case "exit", "quit", "q":
		return true
	case "help":
		s.printf("%s\n", shellHelp)
	case "select":
		s.selectFile(ctx, unquote(arg))
	case "title":
		s.setField(arg, maxTitleLength, func(f *intake.Fields, v string) { f.Title = v })
	case "description":
		s.setField(arg, maxDescriptionLength, func(f *intake.Fields, v string) { f.Description = v })
	case "category":
		s.setField(arg, 0, func(f *intake.Fields, v string) { f.Category = v })
	case "submit":
		s.submit(ctx)
	case "clear":
		s.session.Clear(ctx)
		s.printf("Selection cleared.\n")
	case "status":
		s.status()
	case "list":
		s.list()
	case "save":
		if !s.store.CanSave() {
			s.printf("Nothing to save.\n")
			break
		}
		s.store.SavePortfolio(ctx)
	case "load":
		if !s.store.CanLoad() {
			s.printf("Nothing to reload.\n")
			break
		}
		s.store.LoadPortfolio(ctx)
	case "delete":
		s.deleteItem(ctx, arg)
	default:
		s.printf("Unknown command %q. Type help for a list.\n", verb)
	}
	return false
}

func (s *shell) selectFile(ctx context.Context, path string) {
	if path == "" {
		s.printf("usage: select <path>\n")
		return
	}

	f, err := files.Open(path)
	if err != nil {
		s.printf("Cannot open %s: %v\n", path, err)
		return
	}

	view, err := s.session.SelectFile(ctx, f)
	if err != nil {
		if view.Reason != "" {
			s.printf("%s\n", view.Reason)
		} else {
			s.printf("Error: %v\n", err)
		}
		return
	}

	s.printf("Selected %s (%s, %s)\n", f.Name, view.Metadata.Type, view.Metadata.Size)
	if !view.Preview.Empty() {
		s.printf("Preview: %s\n", view.Preview.URL)
	}
}

func (s *shell) setField(value string, max int, set func(*intake.Fields, string)) {
	if max > 0 {
		var cut bool
		if value, cut = truncateRunes(value, max); cut {
			s.printf("Trimmed to %d characters.\n", max)
		}
	}
	s.session.UpdateFields(func(f *intake.Fields) { set(f, value) })
}

func (s *shell) submit(ctx context.Context) {
	view := s.session.View()
	if view.File != nil && !view.Filled {
		s.printf("Fill in title, description and category first.\n")
		return
	}

	item, err := s.session.Submit(ctx)
	if err != nil {
		if errors.Is(err, intake.ErrNoFile) {
			return
		}
		s.printf("Upload failed: %v\n", err)
		return
	}
	s.printf("Added %s\n", describeItem(item))
}

func (s *shell) deleteItem(ctx context.Context, id string) {
	if id == "" {
		s.printf("usage: delete <id>\n")
		return
	}
	item, ok := s.store.Item(id)
	if !ok {
		s.printf("No item with id %s.\n", id)
		return
	}
	s.store.DeleteItem(ctx, item)
}

func (s *shell) list() {
	items := s.store.Items()
	if len(items) == 0 {
		s.printf("Portfolio is empty.\n")
		return
	}
	s.printf("%s\n", renderItems(items))
}

func (s *shell) status() {
	view := s.session.View()

	rows := [][]string{{"State", view.State.String()}}
	if view.File != nil {
		rows = append(rows, []string{"File", view.File.Path})
	}
	if view.Reason != "" {
		rows = append(rows, []string{"Rejected", view.Reason})
	}
	if !view.Preview.Empty() {
		rows = append(rows, []string{"Preview", view.Preview.URL})
	}
	if view.File != nil && view.Reason == "" {
		rows = append(rows, metadataRows(view.File.Name, view.Metadata)[1:]...)
	}
	rows = append(rows,
		[]string{"Title", view.Fields.Title},
		[]string{"Description", view.Fields.Description},
		[]string{"Category", view.Fields.Category},
		[]string{"Ready to submit", fmt.Sprintf("%t", view.Filled)},
		[]string{"Items", itoa(len(s.store.Items()))},
		[]string{"Unsaved changes", fmt.Sprintf("%t", s.store.HasMediaChanged())},
		[]string{"Can save", fmt.Sprintf("%t", s.store.CanSave())},
		[]string{"Can load", fmt.Sprintf("%t", s.store.CanLoad())},
	)
	if view.Err != nil {
		rows = append(rows, []string{"Last error", view.Err.Error()})
	}

	s.printf("%s\n", renderTable([]string{"Field", "Value"}, rows, nil))
}
