package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/f5devops/xc-ns-mover/internal/mover/batch"
	"github.com/f5devops/xc-ns-mover/internal/mover/config"
)

// readMoveCSV parses the move list: two columns, "namespace" and
// "lb_name", with '#'-prefixed comment lines and blank lines ignored.
func readMoveCSV(path string) ([]batch.LoadBalancerRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read CSV %s: %w", path, err)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	nsCol, nameCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.ToLower(h)) {
		case "namespace":
			nsCol = i
		case "lb_name":
			nameCol = i
		}
	}
	if nsCol == -1 || nameCol == -1 {
		return nil, fmt.Errorf("CSV header must contain 'namespace' and 'lb_name' columns")
	}

	var entries []batch.LoadBalancerRef
	for i, row := range records[1:] {
		lineNum := i + 2
		if nsCol >= len(row) || nameCol >= len(row) {
			continue
		}
		ns := strings.TrimSpace(row[nsCol])
		name := strings.TrimSpace(row[nameCol])
		if ns == "" || name == "" {
			continue
		}
		if err := config.ValidateXCName(ns, fmt.Sprintf("namespace on CSV line %d", lineNum)); err != nil {
			return nil, err
		}
		if err := config.ValidateXCName(name, fmt.Sprintf("lb_name on CSV line %d", lineNum)); err != nil {
			return nil, err
		}
		entries = append(entries, batch.LoadBalancerRef{Namespace: ns, Name: name})
	}
	return entries, nil
}
