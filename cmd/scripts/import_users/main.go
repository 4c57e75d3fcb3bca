package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/huangang/mealkiosk/internal/config"
	"github.com/huangang/mealkiosk/internal/models"
	"github.com/huangang/mealkiosk/internal/services"
	"github.com/xuri/excelize/v2"
)

// userRow is one line of the import sheet.
type userRow struct {
	Line      int
	Name      string
	GroupType string
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	sheet := flag.String("sheet", "", "sheet name (defaults to the first sheet)")
	dryRun := flag.Bool("dry-run", false, "parse and print without writing")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: import_users [-config config.yaml] [-sheet Sheet1] [-dry-run] users.xlsx")
		os.Exit(2)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to open spreadsheet: %v", err)
	}
	defer f.Close()

	rows, skipped, err := readRows(f, *sheet)
	if err != nil {
		log.Fatalf("Failed to read spreadsheet: %v", err)
	}

	fmt.Printf("Parsed %d users (%d rows skipped)\n", len(rows), len(skipped))
	for _, s := range skipped {
		fmt.Printf("  skipped: %s\n", s)
	}
	fmt.Println("")

	fmt.Printf("%-6s %-40s %-20s\n", "Line", "Name", "Group")
	fmt.Println("--------------------------------------------------------------------")
	for _, r := range rows {
		fmt.Printf("%-6d %-40s %-20s\n", r.Line, r.Name, r.GroupType)
	}
	fmt.Println("")

	if *dryRun {
		fmt.Println("Dry run, nothing written.")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := models.InitDB(&cfg.Database); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	users := services.NewUserService(models.GetDB())
	ctx := context.Background()

	var created, updated, failed int
	for _, r := range rows {
		_, isNew, err := users.Upsert(ctx, r.Name, r.GroupType)
		switch {
		case err != nil:
			failed++
			fmt.Printf("line %d: %v\n", r.Line, err)
		case isNew:
			created++
		default:
			updated++
		}
	}

	fmt.Printf("Done: %d created, %d updated, %d failed\n", created, updated, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// readRows reads name and group columns located by header (case-insensitive
// "name" and "group" or "group_type"). Rows missing either value are skipped
// and described in the second return value.
func readRows(r io.Reader, sheet string) ([]userRow, []string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, err
	}
	defer book.Close()

	if sheet == "" {
		sheet = book.GetSheetName(0)
	}
	raw, err := book.GetRows(sheet)
	if err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	nameCol, groupCol := -1, -1
	for i, h := range raw[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name":
			nameCol = i
		case "group", "group_type":
			groupCol = i
		}
	}
	if nameCol < 0 || groupCol < 0 {
		return nil, nil, fmt.Errorf("header row must contain name and group columns")
	}

	var rows []userRow
	var skipped []string
	for i, cells := range raw[1:] {
		line := i + 2
		name := cell(cells, nameCol)
		group := strings.ToLower(cell(cells, groupCol))
		if name == "" && group == "" {
			continue
		}
		if name == "" || group == "" {
			skipped = append(skipped, fmt.Sprintf("line %d: name and group are required", line))
			continue
		}
		rows = append(rows, userRow{Line: line, Name: name, GroupType: group})
	}
	return rows, skipped, nil
}

func cell(cells []string, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}
