// storyctl exercises the storybook API from the command line: browse
// stories, upload a photo, place an order, and follow it to completion.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"storybook-service/internal/client"
)

func main() {
	baseURL := flag.String("server", "http://localhost:8000", "storybook service base URL")
	timeout := flag.Duration("timeout", 0, "overall timeout for wait (0 = no limit)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	c := client.NewClient(*baseURL)
	ctx := context.Background()

	var err error
	switch args[0] {
	case "stories":
		err = listStories(ctx, c)
	case "story":
		err = withArg(args, "story <story_id>", func(id string) error {
			return showStory(ctx, c, id)
		})
	case "seed":
		err = seed(ctx, c)
	case "upload":
		err = withArg(args, "upload <photo file>", func(path string) error {
			return upload(ctx, c, path)
		})
	case "order":
		err = order(ctx, c, args[1:])
	case "wait":
		err = withArg(args, "wait <order_id>", func(id string) error {
			return wait(ctx, c, id, *timeout)
		})
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: storyctl [flags] <command>

commands:
  stories                    list the story catalog
  story <story_id>           show one story with its pages
  seed                       install the demo story
  upload <photo file>        upload and validate a photo
  order [flags]              place an order (see order -h)
  wait <order_id>            poll an order until it finishes

flags:`)
	flag.PrintDefaults()
}

func withArg(args []string, usage string, fn func(string) error) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: storyctl %s", usage)
	}
	return fn(args[1])
}

func listStories(ctx context.Context, c *client.Client) error {
	stories, err := c.GetStories(ctx)
	if err != nil {
		return err
	}
	for _, s := range stories {
		second := ""
		if s.RequiresSecondCharacter {
			second = " (two characters)"
		}
		fmt.Printf("%s  %s  $%.2f  %d pages%s\n", s.ID, s.Title, s.Price, len(s.Pages), second)
	}
	return nil
}

func showStory(ctx context.Context, c *client.Client, id string) error {
	story, err := c.GetStory(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("%s  $%.2f\n", story.Title, story.Price)
	if story.Description != nil {
		fmt.Println(*story.Description)
	}
	for _, p := range story.Pages {
		fmt.Printf("  page %d: slot x=%d y=%d w=%d angle=%.1f\n", p.PageNumber, p.FaceX, p.FaceY, p.FaceWidth, p.FaceAngle)
	}
	return nil
}

func seed(ctx context.Context, c *client.Client) error {
	result, err := c.SeedStories(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s (story %s)\n", result.Message, result.StoryID)
	return nil
}

func upload(ctx context.Context, c *client.Client, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	flow := client.NewUploadFlow(c, func(url string) {
		fmt.Printf("photo accepted: %s\n", url)
	})
	if err := flow.Upload(ctx, path, data); err != nil {
		return err
	}

	state, msg, checklist, _ := flow.State()
	for _, item := range checklist {
		mark := "ok"
		if !item.Passed {
			mark = "FAIL"
		}
		if item.Detail != "" {
			fmt.Printf("  [%s] %s (%s)\n", mark, item.Label, item.Detail)
		} else {
			fmt.Printf("  [%s] %s\n", mark, item.Label)
		}
	}
	if state != client.UploadComplete {
		return fmt.Errorf("photo rejected: %s", msg)
	}
	return nil
}

func order(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("order", flag.ExitOnError)
	storyID := fs.String("story", "", "story id (defaults to the demo story)")
	childName := fs.String("child", "", "child's name")
	photoURL := fs.String("photo", "", "validated photo URL from upload")
	momName := fs.String("mom", "", "mother's name (two-character stories)")
	momPhotoURL := fs.String("mom-photo", "", "mother's photo URL (two-character stories)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *childName == "" || *photoURL == "" {
		return fmt.Errorf("order requires -child and -photo")
	}

	placed, err := c.CreateOrder(ctx, client.CreateOrderParams{
		StoryID:     *storyID,
		ChildName:   *childName,
		PhotoURL:    *photoURL,
		MomName:     *momName,
		MomPhotoURL: *momPhotoURL,
	})
	if err != nil {
		return err
	}
	fmt.Printf("order %s placed (%s)\n", placed.ID, placed.Status)
	return nil
}

func wait(ctx context.Context, c *client.Client, orderID string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	poller := client.NewPoller(c, client.WithOnUpdate(func(s client.Snapshot) {
		fmt.Printf("\r%-12s %s", s.Phase, s.Elapsed.Round(time.Second))
	}))

	final := poller.Run(ctx, orderID)
	fmt.Println()

	switch final.Phase {
	case client.PhaseCompleted:
		if final.Order != nil {
			if final.Order.PDFURL != nil {
				fmt.Printf("book ready: %s\n", *final.Order.PDFURL)
			}
			for _, p := range final.Order.GeneratedPages {
				fmt.Printf("  page %d: %s\n", p.PageNumber, p.ImageURL)
			}
		}
		return nil
	case client.PhaseFailed:
		reason := "unknown"
		if final.Order != nil && final.Order.FailureReason != nil {
			reason = *final.Order.FailureReason
		}
		return fmt.Errorf("order failed: %s", reason)
	case client.PhaseFetchError:
		return fmt.Errorf("lost contact with the server: %v", final.Err)
	default:
		return fmt.Errorf("gave up waiting in phase %s", final.Phase)
	}
}
