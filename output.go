package main

import (
	"fmt"
	"os"
	"strings"

	"library-ledger/library"
	"library-ledger/stats"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/term"
)

const defaultWidth = 100

var cliJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// plainOutput reports whether results should be printed as JSON: on request,
// or when stdout is not a terminal.
func plainOutput() bool {
	return jsonOutput || !term.IsTerminal(int(os.Stdout.Fd()))
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

func printJSON(v any) {
	data, err := cliJSON.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printBooks(books []library.Book) {
	if plainOutput() {
		printJSON(books)
		return
	}
	if len(books) == 0 {
		fmt.Println("No books in library.")
		return
	}

	fmt.Printf("%-15s %-30s %-25s %-6s %-15s %s\n", "ISBN", "Title", "Author", "Year", "Genre", "Status")
	fmt.Println(strings.Repeat("-", 105))
	for _, b := range books {
		status := "Available"
		if !b.Available() {
			status = "Borrowed"
		}
		fmt.Printf("%-15s %-30s %-25s %-6d %-15s %s\n",
			truncateString(b.ISBN, 15),
			truncateString(b.Title, 30),
			truncateString(b.Author, 25),
			b.Year,
			truncateString(b.Genre, 15),
			status)
	}
}

func printMembers(members []library.Member) {
	if plainOutput() {
		printJSON(members)
		return
	}
	if len(members) == 0 {
		fmt.Println("No members registered.")
		return
	}

	fmt.Printf("%-36s %-30s %s\n", "ID", "Name", "Borrowed")
	fmt.Println(strings.Repeat("-", 100))
	for _, m := range members {
		borrowed := strings.Join(m.Borrowed, ", ")
		if borrowed == "" {
			borrowed = "None"
		}
		fmt.Printf("%-36s %-30s %s\n", truncateString(m.ID, 36), truncateString(m.Name, 30), borrowed)
	}
}

func printPie(chart stats.PieChart) {
	if plainOutput() {
		printJSON(chart)
		return
	}
	fmt.Println(chart.Title)
	if len(chart.Slices) == 0 {
		fmt.Println("No books in library.")
		return
	}
	for _, s := range chart.Slices {
		fmt.Printf("  %-25s %5d  %7s\n", truncateString(s.Label, 25), s.Count, s.PercentLabel())
	}
}

func printBars(chart stats.BarChart) {
	if plainOutput() {
		printJSON(chart)
		return
	}
	fmt.Println(chart.Title)
	if len(chart.Bars) == 0 {
		fmt.Println("No books in library.")
		return
	}
	top := chart.Bars[0].Count
	for _, b := range chart.Bars {
		fmt.Printf("  %-15s %s %d\n", b.Label, bar(b.Count, top), b.Count)
	}
}

func printLine(chart stats.LineChart) {
	if plainOutput() {
		printJSON(chart)
		return
	}
	fmt.Println(chart.Title)
	top := 0
	for _, p := range chart.Points {
		top = max(top, p.Count)
	}
	for _, p := range chart.Points {
		fmt.Printf("  %s %s %d\n", p.Day.Format("02/01"), bar(p.Count, top), p.Count)
	}
}

// bar draws count scaled so that top fills the space left on the terminal.
func bar(count, top int) string {
	if count <= 0 || top <= 0 {
		return ""
	}
	space := max(terminalWidth()-30, 10)
	return strings.Repeat("#", max(count*space/top, 1))
}

func truncateString(s string, maxLength int) string {
	return stats.Truncate(s, maxLength)
}
