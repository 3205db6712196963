package main

import (
	"chat-relay/internal"
	"chat-relay/observability"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Relay base URL")
	flag.Parse()

	stats, err := fetchStats(*addr + internal.StatsEndpoint)
	if err != nil {
		log.Fatal("Error while fetching relay stats: ", err)
	}

	fmt.Printf("Relay up for %s, %d live connection(s)\n\n", stats.Uptime, stats.ConnectionsActive)

	counters := newTable([]string{"Counter", "Value"})
	counters.AppendBulk([][]string{
		{"connections total", strconv.FormatInt(stats.ConnectionsTotal, 10)},
		{"text frames", strconv.FormatUint(stats.TextFrames, 10)},
		{"binary frames", strconv.FormatUint(stats.BinaryFrames, 10)},
		{"group messages", strconv.FormatUint(stats.GroupMessages, 10)},
		{"global messages", strconv.FormatUint(stats.GlobalMessages, 10)},
		{"malformed dropped", strconv.FormatUint(stats.MalformedDropped, 10)},
		{"delivered", strconv.FormatUint(stats.Delivered, 10)},
		{"skipped", strconv.FormatUint(stats.Skipped, 10)},
		{"failed", strconv.FormatUint(stats.Failed, 10)},
		{"cpu %", fmt.Sprintf("%.2f", stats.Process.CPUPercent)},
		{"ram %", fmt.Sprintf("%.2f", stats.Process.RAMPercent)},
		{"goroutines", strconv.Itoa(stats.Process.Goroutines)},
	})
	counters.Render()
	fmt.Println()

	groups := newTable([]string{"Group", "Members"})
	for _, g := range stats.Groups {
		groups.Append([]string{g.Name, strconv.Itoa(g.Members)})
	}
	groups.Render()

	if len(stats.BinaryMimeTypes) > 0 {
		fmt.Println()
		mimes := newTable([]string{"Binary MIME", "Frames"})
		names := make([]string, 0, len(stats.BinaryMimeTypes))
		for name := range stats.BinaryMimeTypes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			mimes.Append([]string{name, strconv.FormatUint(stats.BinaryMimeTypes[name], 10)})
		}
		mimes.Render()
	}
}

func fetchStats(url string) (observability.RelayStats, error) {
	httpClient := http.Client{Timeout: 5 * time.Second}
	resp, err := httpClient.Get(url)
	if err != nil {
		return observability.RelayStats{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return observability.RelayStats{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var stats observability.RelayStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return observability.RelayStats{}, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
