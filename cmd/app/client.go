package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/starford/tutordocs/internal/adminclient"
	"github.com/starford/tutordocs/internal/apperr"
	"github.com/starford/tutordocs/internal/editor"
	"github.com/starford/tutordocs/internal/render"
)

func newClient(cmd *cli.Command) (*adminclient.Client, error) {
	path := cmd.String("token-file")
	if path == "" {
		var err error
		if path, err = adminclient.DefaultTokenPath(); err != nil {
			return nil, fmt.Errorf("token path: %w", err)
		}
	}
	return adminclient.New(cmd.String("server"),
		adminclient.WithTokenStore(adminclient.NewFileTokenStore(path)))
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in as the admin and remember the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Value: "admin", Sources: cli.EnvVars("ADMIN_USERNAME")},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Sources: cli.EnvVars("ADMIN_PASSWORD")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := client.Login(ctx, cmd.String("username"), cmd.String("password")); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			fmt.Fprintln(os.Stdout, "Logged in")
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "End the remembered admin session",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := client.Logout(ctx); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			fmt.Fprintln(os.Stdout, "Logged out")
			return nil
		},
	}
}

func pagesCommand() *cli.Command {
	return &cli.Command{
		Name:  "pages",
		Usage: "List tutorial pages in navigation order",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			pages, err := client.Pages(ctx)
			if err != nil {
				return err
			}
			for _, p := range pages {
				fmt.Fprintf(os.Stdout, "%s\t%s\n", p.Key, p.Title)
			}
			return nil
		},
	}
}

func pullCommand() *cli.Command {
	return &cli.Command{
		Name:      "pull",
		Usage:     "Print a page's markdown",
		ArgsUsage: "<page>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to a file instead of stdout"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key := cmd.Args().First()
			if key == "" {
				return errors.New("pull: page is required")
			}
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			markdown, _, err := client.GetContent(ctx, key)
			if err != nil {
				return fmt.Errorf("pull %s: %w", key, err)
			}
			if out := cmd.String("out"); out != "" {
				return os.WriteFile(out, []byte(markdown), 0o644)
			}
			_, err = fmt.Fprint(os.Stdout, markdown)
			return err
		},
	}
}

func pushCommand() *cli.Command {
	return &cli.Command{
		Name:      "push",
		Usage:     "Save a local markdown file as a page",
		ArgsUsage: "<page> <file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Keep saving the file as it changes"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key, file := cmd.Args().Get(0), cmd.Args().Get(1)
			if key == "" || file == "" {
				return errors.New("push: page and file are required")
			}
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			if cmd.Bool("watch") {
				return watchPush(ctx, client, key, file)
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			if _, err := client.SaveContent(ctx, key, string(data)); err != nil {
				if errors.Is(err, apperr.ErrUnauthorized) {
					return fmt.Errorf("push %s: %w (run login first)", key, err)
				}
				return fmt.Errorf("push %s: %w", key, err)
			}
			fmt.Fprintln(os.Stdout, editor.MsgSaved)
			return nil
		},
	}
}

// watchPush drives an editor from file writes, so saves are debounced the
// same way the browser editor debounces keystrokes.
func watchPush(ctx context.Context, client *adminclient.Client, key, file string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	expired := make(chan struct{}, 1)

	ed := editor.New(client, render.Default(),
		editor.WithStatusFunc(func(st editor.Status) {
			if st.Message != "" {
				logger.Info(st.Message, slog.String("page", st.Page), slog.String("state", st.State.String()))
			}
		}),
		editor.WithSessionExpired(func() {
			select {
			case expired <- struct{}{}:
			default:
			}
		}),
	)
	defer ed.Close()

	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}

	err = ed.Open(ctx, key)
	if errors.Is(err, apperr.ErrNotFound) {
		// New page: create it from the file so the editor has something to open.
		data, readErr := os.ReadFile(abs)
		if readErr != nil {
			return readErr
		}
		if _, err = client.SaveContent(ctx, key, string(data)); err == nil {
			err = ed.Open(ctx, key)
		}
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	load := func() {
		data, err := os.ReadFile(abs)
		if err != nil {
			logger.Warn("read failed", slog.String("file", abs), slog.String("error", err.Error()))
			return
		}
		if string(data) != ed.Buffer() {
			ed.Edit(string(data))
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// Watch the directory: editors often replace the file on save.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	load()
	logger.Info("watching", slog.String("file", abs), slog.String("page", key))

	for {
		select {
		case <-ctx.Done():
			return ed.Flush(context.Background())
		case <-expired:
			return fmt.Errorf("%s: %w", editor.MsgSessionExpired, apperr.ErrUnauthorized)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) == abs && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				load()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}
