package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docstorm/internal/engine"
	"github.com/dshills/docstorm/internal/engine/tracking"
)

// maxLine bounds one record read by the session command.
const maxLine = 4 << 20

// sanitize opens each file as a document and prints the sanitized markup.
func (a *app) sanitize(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return errors.New("sanitize: no files given")
	}
	ev, err := a.setup(cmd, false)
	if err != nil {
		return err
	}
	defer ev.Close()

	results := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := readDoc(file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			e, err := ev.open(content)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			defer e.Close()

			results[i] = e.Markup()
			if cmd.Bool("write") {
				return rewrite(file, results[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	ev.log.Info("sanitized documents", zap.Int("files", len(files)))

	if !cmd.Bool("json") {
		for _, markup := range results {
			fmt.Fprintln(a.stdout, markup)
		}
		return nil
	}
	out := []byte(`[]`)
	for i, file := range files {
		item, err := sjson.SetBytes([]byte(`{}`), "file", file)
		if err == nil {
			item, err = sjson.SetBytes(item, "markup", results[i])
		}
		if err == nil {
			out, err = sjson.SetRawBytes(out, "-1", item)
		}
		if err != nil {
			return err
		}
	}
	fmt.Fprintln(a.stdout, string(out))
	return nil
}

// rewrite replaces the content of file, keeping its permissions.
func rewrite(file, content string) error {
	info, err := os.Stat(file)
	if err != nil {
		return err
	}
	return os.WriteFile(file, []byte(content), info.Mode().Perm())
}

// apply replays an operation log and prints the resulting state.
func (a *app) apply(_ context.Context, cmd *cli.Command) error {
	content, err := readDoc(cmd.String("doc"))
	if err != nil {
		return err
	}
	log, err := os.ReadFile(cmd.String("log"))
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}

	ev, err := a.setup(cmd, false)
	if err != nil {
		return err
	}
	defer ev.Close()

	e, err := ev.open(content)
	if err != nil {
		return err
	}
	defer e.Close()

	start := e.Revision()
	if err := e.ApplyLog(log); err != nil {
		return err
	}
	out, err := documentState(e)
	if err != nil {
		return err
	}
	if cmd.Bool("export") {
		records, err := e.Export(start)
		if err != nil {
			return err
		}
		if out, err = sjson.SetRawBytes(out, "records", records); err != nil {
			return err
		}
	}
	fmt.Fprintln(a.stdout, string(out))
	return nil
}

// session applies one JSON record per input line and prints the document
// state after each. A record without a range applies at the current
// selection. Failed records are reported and the session goes on.
func (a *app) session(ctx context.Context, cmd *cli.Command) error {
	content, err := readDoc(cmd.String("doc"))
	if err != nil {
		return err
	}
	ev, err := a.setup(cmd, true)
	if err != nil {
		return err
	}
	defer ev.Close()

	e, err := ev.open(content)
	if err != nil {
		return err
	}
	defer e.Close()
	ev.log.Info("session started", zap.String("session", e.ID()))

	scanner := bufio.NewScanner(a.stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		out, err := step(e, line)
		if err != nil {
			ev.log.Warn("record failed", zap.Error(err))
			if out, err = sjson.SetBytes([]byte(`{}`), "error", err.Error()); err != nil {
				return err
			}
		}
		fmt.Fprintln(a.stdout, string(out))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read records: %w", err)
	}
	ev.log.Info("session ended", zap.Uint64("revision", uint64(e.Revision())))
	return nil
}

// step applies one record line and returns the document state.
func step(e *engine.Engine, line []byte) ([]byte, error) {
	rec, err := tracking.ParseRecord(line)
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(line, "range").Exists() {
		if rec.Range, err = e.SelectionPath(); err != nil {
			return nil, err
		}
	}
	if err := e.Apply(rec); err != nil {
		return nil, err
	}
	return documentState(e)
}

// documentState encodes the revision, markup, selection and active marks
// of e.
func documentState(e *engine.Engine) ([]byte, error) {
	sel, err := e.SelectionPath()
	if err != nil {
		return nil, err
	}
	marks := e.ActiveMarks()
	if marks == nil {
		marks = []string{}
	}

	out := []byte(`{}`)
	set := func(path string, v any) {
		if err == nil {
			out, err = sjson.SetBytes(out, path, v)
		}
	}
	set("revision", uint64(e.Revision()))
	set("markup", e.Markup())
	set("selection.start.path", nonNil(sel.Start.Path))
	set("selection.start.offset", sel.Start.Offset)
	set("selection.end.path", nonNil(sel.End.Path))
	set("selection.end.offset", sel.End.Offset)
	set("activeMarks", marks)
	return out, err
}

func nonNil(p []int) []int {
	if p == nil {
		return []int{}
	}
	return p
}
