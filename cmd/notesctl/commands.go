package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"smartnotes/internal/auth"
	"smartnotes/internal/editor"
	"smartnotes/internal/errs"
	"smartnotes/internal/notes"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Save the server URL and token to the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProfile(a.fs, a.profilePath)
			if err != nil {
				return err
			}
			if a.server != "" {
				p.Server = a.server
			}
			if a.token != "" {
				p.Token = a.token
			}
			if p.Server == "" {
				return fmt.Errorf("--server is required")
			}
			if err := saveProfile(a.fs, a.profilePath, p); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Profile saved to %s\n", a.profilePath)
			return nil
		},
	}
}

func newTokenCmd(a *app) *cobra.Command {
	var (
		keyHex string
		userID string
		ttl    time.Duration
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user id with the server's AUTH_TOKEN_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := auth.NewTokenService(keyHex, ttl)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(userID)
			if err != nil {
				return err
			}
			if !save {
				fmt.Fprintln(a.out, token)
				return nil
			}
			p, err := loadProfile(a.fs, a.profilePath)
			if err != nil {
				return err
			}
			p.Token = token
			if a.server != "" {
				p.Server = a.server
			}
			if err := saveProfile(a.fs, a.profilePath, p); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Token for %s saved to %s\n", userID, a.profilePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "64 hex character token key")
	cmd.Flags().StringVar(&userID, "user", "", "User id to put in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.Flags().BoolVar(&save, "save", false, "Store the token in the profile instead of printing it")
	cmd.MarkFlagRequired("key")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			list, err := c.List(cmd.Context())
			if err != nil {
				return describe(err)
			}
			a.printNotes(list)
			return nil
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		tag   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search your notes by text and tag",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			q := notes.SearchQuery{Tag: tag, Limit: limit}
			if len(args) == 1 {
				q.Query = args[0]
			}
			list, err := c.Search(cmd.Context(), q)
			if err != nil {
				return describe(err)
			}
			a.printNotes(list)
			return nil
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Only notes with this exact tag")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of results")
	return cmd
}

// draftFlags are shared by new and edit.
type draftFlags struct {
	title        string
	content      string
	contentFile  string
	tags         []string
	summarize    bool
	suggestTags  bool
	improve      bool
	summaryAsTag bool
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Note title")
	cmd.Flags().StringVar(&f.content, "content", "", "Note content")
	cmd.Flags().StringVar(&f.contentFile, "content-file", "", "Read the note content from a file")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "Comma-separated tags (replaces existing tags)")
	cmd.Flags().BoolVar(&f.improve, "improve", false, "Let the AI rewrite the content before saving")
	cmd.Flags().BoolVar(&f.summarize, "summarize", false, "Attach an AI summary")
	cmd.Flags().BoolVar(&f.suggestTags, "suggest-tags", false, "Add AI suggested tags")
	cmd.Flags().BoolVar(&f.summaryAsTag, "summary-as-tag", false, "Store the AI summary as a tag instead of the summary field")
}

func newNewCmd(a *app) *cobra.Command {
	var f draftFlags
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Write a new note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			o := editor.New(c, nil, editor.WithLogger(a.log), editor.WithSummaryAsTag(f.summaryAsTag))
			if err := o.NewDraft(); err != nil {
				return err
			}
			if err := a.runDraft(cmd, o, &f); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Note saved.")
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var f draftFlags
	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Edit one of your notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			list, err := c.List(cmd.Context())
			if err != nil {
				return describe(err)
			}
			var target *notes.Note
			for _, n := range list {
				if n.ID == args[0] {
					target = n
					break
				}
			}
			if target == nil {
				return fmt.Errorf("note %s not found", args[0])
			}

			o := editor.New(c, nil, editor.WithLogger(a.log), editor.WithSummaryAsTag(f.summaryAsTag))
			if err := o.Edit(target); err != nil {
				return err
			}
			if err := a.runDraft(cmd, o, &f); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Note %s updated.\n", target.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// runDraft applies the flags to the open draft, runs the requested AI
// operations and saves.
func (a *app) runDraft(cmd *cobra.Command, o *editor.Orchestrator, f *draftFlags) error {
	ctx := cmd.Context()

	if cmd.Flags().Changed("title") {
		if err := o.SetTitle(f.title); err != nil {
			return err
		}
	}
	content := f.content
	if f.contentFile != "" {
		data, err := afero.ReadFile(a.fs, f.contentFile)
		if err != nil {
			return fmt.Errorf("read content file: %w", err)
		}
		content = string(data)
	}
	if cmd.Flags().Changed("content") || f.contentFile != "" {
		if err := o.SetContent(content); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("tags") {
		if err := o.SetTags(f.tags); err != nil {
			return err
		}
	}

	// Improve first so summary and tags describe the final text.
	for _, step := range []struct {
		on   bool
		kind editor.AIKind
	}{
		{f.improve, editor.AIImprove},
		{f.summarize, editor.AISummary},
		{f.suggestTags, editor.AITags},
	} {
		if !step.on {
			continue
		}
		if err := o.RunAI(ctx, step.kind); err != nil {
			return fmt.Errorf("%s: %w", step.kind, describe(err))
		}
	}

	snap := o.Snapshot()
	if snap.Summary != "" {
		fmt.Fprintf(a.out, "Summary: %s\n", snap.Summary)
	}
	if len(snap.SuggestedTags) > 0 {
		fmt.Fprintf(a.out, "Suggested tags: %s\n", strings.Join(snap.SuggestedTags, ", "))
	}

	if err := o.Save(ctx); err != nil {
		return describe(err)
	}
	return nil
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete one of your notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			gate := editor.ConfirmFunc(func(ctx context.Context, id string) bool {
				return yes || a.confirm(ctx, fmt.Sprintf("Delete note %s?", id))
			})
			o := editor.New(c, gate, editor.WithLogger(a.log))
			if err := o.Delete(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, editor.ErrDeleteDeclined) {
					fmt.Fprintln(a.out, "Aborted.")
					return nil
				}
				return describe(err)
			}
			fmt.Fprintf(a.out, "Note %s deleted.\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (a *app) printNotes(list []*notes.Note) {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No notes.")
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tTITLE\tTAGS")
	for _, n := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Title, strings.Join(n.Tags, ","))
	}
	w.Flush()
}

// describe prefixes coded errors with a hint about what to do.
func describe(err error) error {
	switch errs.CodeOf(err) {
	case errs.Unauthenticated:
		return fmt.Errorf("%w (check your token with 'notesctl login --token')", err)
	case errs.NotFound:
		return fmt.Errorf("%w (it may have been deleted)", err)
	default:
		return err
	}
}
