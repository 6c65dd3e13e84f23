package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kleen-pos/api/internal/orderstatus"
)

func TestPrintSummary(t *testing.T) {
	p := orderstatus.Projection{
		OrderID:         "TZM251015091748056",
		CustomerName:    "Priza",
		TransactionType: "REGULER",
		CurrentStep:     "Selesai",
		Progress:        100,
		Timeline: []orderstatus.StepView{
			{Step: "Order Diterima", Time: "09:17", Staff: "Kasir Pangpol", Completed: true},
			{Step: "Cuci", Time: "14:56", Staff: "DianiMY"},
		},
		TotalAmount:  "Rp 50.000",
		PaymentBadge: "BELUM_LUNAS",
		PhotoCount:   3,
	}

	var buf bytes.Buffer
	printSummary(&buf, p)
	out := buf.String()
	for _, want := range []string{
		"Order      TZM251015091748056 (REGULER)",
		"Status     Selesai (100%)",
		"[x] Order Diterima",
		"[ ] Cuci",
		"Pembayaran BELUM LUNAS",
		"Foto       3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
