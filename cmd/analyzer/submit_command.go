package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/api"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		contentID string
		kindFlag  string
		shareURL  string
		caption   string
		coverURL  string
		views     int64
		likes     int64
		comments  int64
		shares    int64
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue a piece of content for analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := queue.ParseKind(kindFlag)
			if !ok {
				return fmt.Errorf("unknown kind %q (expected video or static)", kindFlag)
			}

			engagement := queue.Engagement{
				Views:    views,
				Likes:    likes,
				Comments: comments,
				Shares:   shares,
			}

			payload := queue.Payload{Kind: kind}
			switch kind {
			case queue.KindVideo:
				payload.Video = &queue.VideoPayload{
					ShareURL:   strings.TrimSpace(shareURL),
					Engagement: engagement,
				}
			case queue.KindStatic:
				payload.Static = &queue.StaticPayload{
					Caption:    caption,
					CoverURL:   strings.TrimSpace(coverURL),
					Engagement: engagement,
				}
			}

			id := strings.TrimSpace(contentID)
			if id == "" {
				id = uuid.NewString()
			}

			return ctx.withService(func(service *api.Service) error {
				submission, err := service.Submit(cmd.Context(), id, payload)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if submission.Created {
					fmt.Fprintf(out, "Queued %s as job %d\n", id, submission.Job.ID)
				} else {
					fmt.Fprintf(out, "Content %s already queued as job %d (status %s)\n",
						id, submission.Job.ID, submission.Job.Status)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&contentID, "id", "", "Content identifier (generated when omitted)")
	cmd.Flags().StringVar(&kindFlag, "kind", "video", "Content kind: video or static")
	cmd.Flags().StringVar(&shareURL, "url", "", "Share URL for video content")
	cmd.Flags().StringVar(&caption, "caption", "", "Caption text for static content")
	cmd.Flags().StringVar(&coverURL, "cover-url", "", "Cover image URL for static content")
	cmd.Flags().Int64Var(&views, "views", 0, "View count at submission time")
	cmd.Flags().Int64Var(&likes, "likes", 0, "Like count at submission time")
	cmd.Flags().Int64Var(&comments, "comments", 0, "Comment count at submission time")
	cmd.Flags().Int64Var(&shares, "shares", 0, "Share count at submission time")

	return cmd
}
