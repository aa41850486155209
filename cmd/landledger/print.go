package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"landledger/internal/ledger"
)

const timeLayout = "2006-01-02 15:04:05"

func joinIDs(ids []int64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, " ")
}

func printIDs(w io.Writer, what string, ids []int64) {
	if len(ids) == 0 {
		fmt.Fprintf(w, "No %s.\n", what)
		return
	}
	for _, id := range ids {
		fmt.Fprintf(w, "#%d\n", id)
	}
}

func printLand(w io.Writer, l *ledger.Land, portions []int64) {
	fmt.Fprintf(w, "Land #%d  %s\n", l.ID, l.Name)
	fmt.Fprintf(w, "  owner:     %s\n", l.Owner)
	fmt.Fprintf(w, "  divided:   %t\n", l.Divided)
	fmt.Fprintf(w, "  documents: %s\n", joinIDs(l.DocumentIDs))
	fmt.Fprintf(w, "  portions:  %s\n", joinIDs(portions))
	fmt.Fprintf(w, "  created:   %s\n", l.CreatedAt.Format(timeLayout))
}

func printPortion(w io.Writer, p *ledger.Portion) {
	fmt.Fprintf(w, "Portion #%d  %s  [%s]\n", p.ID, p.Name, p.Status())
	fmt.Fprintf(w, "  owner:     %s\n", p.Owner)
	if p.LandID != nil {
		fmt.Fprintf(w, "  land:      #%d\n", *p.LandID)
	}
	if p.Buyer != nil {
		fmt.Fprintf(w, "  buyer:     %s\n", *p.Buyer)
	}
	if len(p.BuyerHistory) > 0 {
		fmt.Fprintln(w, "  buyers:")
		for _, b := range p.BuyerHistory {
			fmt.Fprintf(w, "    %s\n", b)
		}
	}
	if t := p.Terms; t != nil {
		expires := "never"
		if !t.Perpetual() {
			expires = t.ExpiresAt().Format(timeLayout)
		}
		fmt.Fprintf(w, "  terms:     price=%d duration=%s expires=%s\n",
			t.Price, time.Duration(t.DurationSeconds)*time.Second, expires)
		fmt.Fprintf(w, "             production=%q periodicity=%q quantities=%d/%d\n",
			t.ExpectedProduction, t.Periodicity, t.QuantityA, t.QuantityB)
	}
	fmt.Fprintf(w, "  documents: %s\n", joinIDs(p.DocumentIDs))
	fmt.Fprintf(w, "  products:  %s\n", joinIDs(p.Products))
	fmt.Fprintf(w, "  activities: %s\n", joinIDs(p.ProductionActivities))
	fmt.Fprintf(w, "  maintenance: %s\n", joinIDs(p.Maintenances))
}

func printRecord(w io.Writer, r *ledger.Record) {
	fmt.Fprintf(w, "%s #%d  %s\n", r.Kind, r.ID, r.Name)
	fmt.Fprintf(w, "  portion:  #%d\n", r.PortionID)
	fmt.Fprintf(w, "  operator: %s\n", r.Operator)
	fmt.Fprintf(w, "  created:  %s\n", r.CreatedAt.Format(timeLayout))
	for _, c := range r.Certifications {
		fmt.Fprintf(w, "  certified %s by %s: %s\n", c.CreatedAt.Format(timeLayout), c.Certifier, c.Text)
	}
}

func printDocument(w io.Writer, e *ledger.DocumentEntry) {
	enc := ""
	if e.Encrypted {
		enc = "  [encrypted]"
	}
	fmt.Fprintf(w, "Document #%d  %s%s\n", e.ID, e.Name, enc)
	fmt.Fprintf(w, "  fingerprint: %s\n", e.Fingerprint.Hex())
	fmt.Fprintf(w, "  size:        %d\n", e.Size)
	fmt.Fprintf(w, "  created:     %s\n", e.CreatedAt.Format(timeLayout))
}
