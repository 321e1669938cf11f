// Command storynestctl manages kid profiles and stories from the terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/storynest/storynest/client"
	"github.com/storynest/storynest/devmode"
	"github.com/storynest/storynest/internal/logger"
)

const requestTimeout = 15 * time.Second

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// rootFlags are shared by every sub-command.
type rootFlags struct {
	serviceURL string
	apiKey     string
	debug      bool
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	f := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:           "storynestctl",
		Short:         "storynestctl manages kid profiles and stories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = logger.Console(cmd.ErrOrStderr())
			if f.debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				log.Debug().Msg("debug logging enabled")
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&f.serviceURL, "service-url", "", "Base URL of the storytelling backend (default $STORYNEST_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&f.apiKey, "api-key", "", "Bearer API key (default $STORYNEST_API_KEY, then the dev key)")
	rootCmd.PersistentFlags().BoolVarP(&f.debug, "debug", "d", false, "Log HTTP traffic")

	rootCmd.AddCommand(
		newListKidsCmd(f),
		newGetKidCmd(f),
		newCreateKidCmd(f),
		newUpdateKidCmd(f),
		newDeleteKidCmd(f),
		newListStoriesCmd(f),
		newGetStoryCmd(f),
		newFavouriteStoryCmd(f),
		newDeleteStoryCmd(f),
		newListPendingCmd(f),
		newGenerateStoryCmd(f),
	)
	return rootCmd
}

// newClient builds a client from STORYNEST_* env with flags taking precedence.
func newClient(f *rootFlags, opts ...client.Option) (*client.Client, error) {
	cfg, err := client.LoadConfig()
	if err != nil {
		return nil, err
	}
	if f.serviceURL != "" {
		cfg.BaseURL = f.serviceURL
	}
	if f.apiKey != "" {
		cfg.APIKey = f.apiKey
	}
	if cfg.APIKey == "" {
		cfg.APIKey = devmode.APIKey
	}
	cfg.Debug = cfg.Debug || f.debug
	return client.NewFromConfig(cfg, append([]client.Option{client.WithLogger(log.Logger)}, opts...)...)
}

// run builds a client, gives fn a bounded context and closes the client after.
func run(cmd *cobra.Command, f *rootFlags, fn func(ctx context.Context, c *client.Client) error, opts ...client.Option) error {
	c, err := newClient(f, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	start := time.Now()
	err = fn(ctx, c)
	log.Debug().Str("command", cmd.Name()).Dur("elapsed", time.Since(start)).Err(err).Msg("command finished")
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newListKidsCmd(f *rootFlags) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list-kids",
		Short: "List the kid profiles of a parent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, func(ctx context.Context, c *client.Client) error {
				kids, err := c.Kids().ListForOwner(ctx, userID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), kids)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "Parent user ID (required)")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func newGetKidCmd(f *rootFlags) *cobra.Command {
	var kidID string
	cmd := &cobra.Command{
		Use:   "get-kid",
		Short: "Show one kid profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, func(ctx context.Context, c *client.Client) error {
				k, err := c.Kids().Get(ctx, kidID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), k)
			})
		},
	}
	cmd.Flags().StringVar(&kidID, "kid-id", "", "Kid ID (required)")
	_ = cmd.MarkFlagRequired("kid-id")
	return cmd
}

// kidFlags holds the optional profile fields shared by create and update.
type kidFlags struct {
	name, gender, avatar, appearance, notes, language string
	age                                               int
	genres                                            []string
}

func (k *kidFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&k.name, "name", "", "Kid name")
	cmd.Flags().IntVar(&k.age, "age", 0, "Age in years")
	cmd.Flags().StringVar(&k.gender, "gender", "", "Gender")
	cmd.Flags().StringVar(&k.avatar, "avatar", "", "Avatar type")
	cmd.Flags().StringVar(&k.appearance, "appearance", "", "Appearance description")
	cmd.Flags().StringSliceVar(&k.genres, "genres", nil, "Favourite genres, comma separated")
	cmd.Flags().StringVar(&k.notes, "notes", "", "Parent notes")
	cmd.Flags().StringVar(&k.language, "language", "", "Preferred language (BCP 47)")
}

// changed returns a pointer to v only when the flag was given.
func changed[T any](cmd *cobra.Command, name string, v T) *T {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func newCreateKidCmd(f *rootFlags) *cobra.Command {
	var userID string
	k := &kidFlags{}
	cmd := &cobra.Command{
		Use:   "create-kid",
		Short: "Create a kid profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.CreateKidRequest{
				UserID:                userID,
				Name:                  k.name,
				Age:                   changed(cmd, "age", k.age),
				Gender:                changed(cmd, "gender", k.gender),
				AvatarType:            changed(cmd, "avatar", k.avatar),
				AppearanceDescription: changed(cmd, "appearance", k.appearance),
				FavoriteGenres:        k.genres,
				ParentNotes:           changed(cmd, "notes", k.notes),
				PreferredLanguage:     changed(cmd, "language", k.language),
			}
			return run(cmd, f, func(ctx context.Context, c *client.Client) error {
				kid, err := c.Kids().Create(ctx, req)
				if err != nil {
					return err
				}
				log.Info().Str("kid_id", kid.ID).Str("name", kid.Name).Msg("kid created")
				return printJSON(cmd.OutOrStdout(), kid)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "Parent user ID (required)")
	k.register(cmd)
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUpdateKidCmd(f *rootFlags) *cobra.Command {
	var kidID string
	k := &kidFlags{}
	cmd := &cobra.Command{
		Use:   "update-kid",
		Short: "Update the given fields of a kid profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.UpdateKidRequest{
				Name:                  changed(cmd, "name", k.name),
				Age:                   changed(cmd, "age", k.age),
				Gender:                changed(cmd, "gender", k.gender),
				AvatarType:            changed(cmd, "avatar", k.avatar),
				AppearanceDescription: changed(cmd, "appearance", k.appearance),
				FavoriteGenres:        changed(cmd, "genres", k.genres),
				ParentNotes:           changed(cmd, "notes", k.notes),
				PreferredLanguage:     changed(cmd, "language", k.language),
			}
			return run(cmd, f, func(ctx context.Context, c *client.Client) error {
				kid, err := c.Kids().Update(ctx, kidID, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), kid)
			})
		},
	}
	cmd.Flags().StringVar(&kidID, "kid-id", "", "Kid ID (required)")
	k.register(cmd)
	_ = cmd.MarkFlagRequired("kid-id")
	return cmd
}

func newDeleteKidCmd(f *rootFlags) *cobra.Command {
	var kidID string
	cmd := &cobra.Command{
		Use:   "delete-kid",
		Short: "Delete a kid profile and its stories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, func(ctx context.Context, c *client.Client) error {
				if err := c.DeleteKid(ctx, kidID); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Kid deleted: %s\n", kidID)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&kidID, "kid-id", "", "Kid ID (required)")
	_ = cmd.MarkFlagRequired("kid-id")
	return cmd
}

func newListStoriesCmd(f *rootFlags) *cobra.Command {
	var kidID string
	cmd := &cobra.Command{
		Use:   "list-stories",
		Short: "List the stories of a kid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, func(ctx context.Context, c *client.Client) error {
				stories, err := c.Stories().ListForOwner(ctx, kidID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stories)
			})
		},
	}
	cmd.Flags().StringVar(&kidID, "kid-id", "", "Kid ID (required)")
	_ = cmd.MarkFlagRequired("kid-id")
	return cmd
}

func newGetStoryCmd(f *rootFlags) *cobra.Command {
	var storyID string
	cmd := &cobra.Command{
		Use:   "get-story",
		Short: "Show one story",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, func(ctx context.Context, c *client.Client) error {
				st, err := c.Stories().Get(ctx, storyID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
	cmd.Flags().StringVar(&storyID, "story-id", "", "Story ID (required)")
	_ = cmd.MarkFlagRequired("story-id")
	return cmd
}

func newFavouriteStoryCmd(f *rootFlags) *cobra.Command {
	var storyID string
	var favourite bool
	cmd := &cobra.Command{
		Use:   "favourite-story",
		Short: "Mark or unmark a story as favourite",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, func(ctx context.Context, c *client.Client) error {
				st, err := c.Stories().ToggleFavourite(ctx, storyID, favourite)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
	cmd.Flags().StringVar(&storyID, "story-id", "", "Story ID (required)")
	cmd.Flags().BoolVar(&favourite, "favourite", true, "Favourite flag; --favourite=false to unmark")
	_ = cmd.MarkFlagRequired("story-id")
	return cmd
}

func newDeleteStoryCmd(f *rootFlags) *cobra.Command {
	var storyID string
	cmd := &cobra.Command{
		Use:   "delete-story",
		Short: "Delete a story",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, func(ctx context.Context, c *client.Client) error {
				if err := c.Stories().Delete(ctx, storyID); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Story deleted: %s\n", storyID)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&storyID, "story-id", "", "Story ID (required)")
	_ = cmd.MarkFlagRequired("story-id")
	return cmd
}

func newListPendingCmd(f *rootFlags) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list-pending",
		Short: "List stories waiting for parent review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, func(ctx context.Context, c *client.Client) error {
				stories, err := c.Stories().ListPending(ctx, userID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stories)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "Parent user ID (required)")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func newGenerateStoryCmd(f *rootFlags) *cobra.Command {
	var kidID, prompt, genre, language, length string
	var wait bool
	cmd := &cobra.Command{
		Use:   "generate-story",
		Short: "Queue a story generation for a kid",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.GenerateStoryRequest{
				KidID:    kidID,
				Prompt:   changed(cmd, "prompt", prompt),
				Genre:    changed(cmd, "genre", genre),
				Language: changed(cmd, "language", language),
				Length:   changed(cmd, "length", length),
			}
			failed := make(chan error, 1)
			onFail := client.WithGenerationErrorHandler(func(_ string, err error) {
				select {
				case failed <- err:
				default:
				}
			})
			return run(cmd, f, func(ctx context.Context, c *client.Client) error {
				ack, err := c.SubmitGeneration(ctx, req)
				if err != nil {
					return err
				}
				if !wait {
					return printJSON(cmd.OutOrStdout(), ack)
				}
				if err := c.AwaitGenerations(ctx, kidID); err != nil {
					return err
				}
				select {
				case err := <-failed:
					return fmt.Errorf("generation failed: %w", err)
				default:
				}
				stories, err := c.Stories().ListForOwner(ctx, kidID)
				if err != nil {
					return err
				}
				if len(stories) == 0 {
					return errors.New("generation finished but the kid has no stories")
				}
				return printJSON(cmd.OutOrStdout(), stories[len(stories)-1])
			}, onFail)
		},
	}
	cmd.Flags().StringVar(&kidID, "kid-id", "", "Kid ID (required)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Extra instructions for the story")
	cmd.Flags().StringVar(&genre, "genre", "", "Genre")
	cmd.Flags().StringVar(&language, "language", "", "Story language (BCP 47)")
	cmd.Flags().StringVar(&length, "length", "", "short, medium or long")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the story and print it")
	_ = cmd.MarkFlagRequired("kid-id")
	return cmd
}
