// Package main implements radar-tail, a terminal client for the live event
// feed. It prints incoming events colored by direction, optionally filtered
// by an expression over event fields, and can summarize traffic on exit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/expr-lang/expr"
	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/internal/stream"
)

func main() {
	feedURL := flag.String("url", "ws://localhost:8090/stream", "Feed websocket URL")
	token := flag.String("token", os.Getenv("FEED_TOKEN"), "Feed credential, defaults to FEED_TOKEN")
	filter := flag.String("filter", "", "Boolean expression over event fields, e.g. 'impactScore > 50 && ticker == \"ACME\"'")
	summary := flag.Bool("summary", false, "Print a per-type summary table on exit")
	flag.Parse()

	// With no filter every event matches. Heartbeats are only shown when
	// no filter is set; they have no fields worth filtering on.
	matches := func(map[string]interface{}) bool { return true }
	if *filter != "" {
		program, err := expr.Compile(*filter, expr.Env(map[string]interface{}{}), expr.AsBool())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid filter expression: %v\n", err)
			os.Exit(1)
		}
		matches = func(env map[string]interface{}) bool {
			output, err := expr.Run(program, env)
			if err != nil {
				return false
			}
			match, ok := output.(bool)
			return ok && match
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u, err := url.Parse(*feedURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid feed URL: %v\n", err)
		os.Exit(1)
	}
	if *token != "" {
		q := u.Query()
		q.Set("token", *token)
		u.RawQuery = q.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", *feedURL, err)
		os.Exit(1)
	}
	defer conn.Close()

	// ReadMessage has no context support, so closing the connection is how
	// an interrupt unblocks the read loop.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	fmt.Printf("Tailing %s (ctrl-c to stop)\n", u.Host)

	counts := make(map[string]int)
	framer := stream.NewFramer()
	for {
		_, chunk, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				fmt.Fprintf(os.Stderr, "Feed read failed: %v\n", err)
			}
			break
		}
		for _, frame := range framer.Feed(chunk) {
			msg, err := stream.DecodeMessage(frame)
			if err != nil {
				var unknown *stream.ErrUnknownType
				if !errors.As(err, &unknown) {
					fmt.Fprintf(os.Stderr, "Skipping malformed frame: %v\n", err)
				}
				continue
			}
			counts[msg.Type]++
			printMessage(msg, *filter != "", matches)
		}
	}

	if *summary {
		printSummary(counts)
	}
}

func printMessage(msg *stream.Message, filtered bool, matches func(map[string]interface{}) bool) {
	switch msg.Type {
	case stream.TypeEventNew:
		ev := msg.EventNew
		if !matches(map[string]interface{}{
			"id":          ev.ID,
			"ticker":      ev.Ticker,
			"headline":    ev.Headline,
			"eventType":   ev.EventType,
			"impactScore": ev.ImpactScore,
			"direction":   ev.Direction,
			"confidence":  ev.Confidence,
		}) {
			return
		}
		fmt.Printf("%s  %s  %5.1f  %-20s %s\n",
			ev.PublishedAt.Local().Format("15:04:05"),
			directionColor(ev.Direction).Sprintf("%-6s", ev.Ticker),
			ev.ImpactScore,
			ev.EventType,
			ev.Headline)
	case stream.TypeEventScored:
		ev := msg.EventScored
		if !matches(map[string]interface{}{
			"eventId":    ev.EventID,
			"score":      ev.Score,
			"direction":  ev.Direction,
			"confidence": ev.Confidence,
		}) {
			return
		}
		fmt.Printf("%s  %s  %s\n",
			color.New(color.FgHiBlue, color.Bold).Sprint("rescore"),
			ev.EventID,
			directionColor(ev.Direction).Sprintf("%.1f (confidence %.2f)", ev.Score, ev.Confidence))
	case stream.TypeHeartbeat:
		if filtered {
			return
		}
		color.New(color.FgHiBlack).Printf("heartbeat %s\n", msg.Heartbeat.Timestamp.Local().Format("15:04:05"))
	}
}

func directionColor(direction string) *color.Color {
	switch direction {
	case "bullish":
		return color.New(color.FgHiGreen, color.Bold)
	case "bearish":
		return color.New(color.FgHiRed, color.Bold)
	default:
		return color.New(color.FgHiYellow, color.Bold)
	}
}

func printSummary(counts map[string]int) {
	types := make([]string, 0, len(counts))
	total := 0
	for t, n := range counts {
		types = append(types, t)
		total += n
	}
	sort.Strings(types)

	table := tablewriter.NewWriter(os.Stdout)
	if err := table.Append([]string{"Type", "Count"}); err != nil {
		fmt.Printf("Failed to append header row: %v\n", err)
	}
	for _, t := range types {
		if err := table.Append([]string{t, strconv.Itoa(counts[t])}); err != nil {
			fmt.Printf("Failed to append row: %v\n", err)
		}
	}
	if err := table.Append([]string{"total", strconv.Itoa(total)}); err != nil {
		fmt.Printf("Failed to append row: %v\n", err)
	}
	if err := table.Render(); err != nil {
		fmt.Printf("Failed to render table: %v\n", err)
	}
}
