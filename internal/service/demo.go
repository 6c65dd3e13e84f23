package service

import (
	"time"

	"github.com/kleen-pos/api/internal/database"
	"github.com/kleen-pos/api/internal/enum"
)

// DemoOrderID is the order the seed tool creates for the sample status page.
const DemoOrderID = "TZM251015091748056"

func demoTime(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, jakarta)
	if err != nil {
		panic(err)
	}
	return t
}

// DemoOrder is a finished, unpaid REGULER order from the Panglima Polim
// outlet.
func DemoOrder() CreateOrderRequest {
	const svc = "Cuci Lipat 1 hari"
	balance := int64(50000)
	paid := false
	return CreateOrderRequest{
		OrderID:         DemoOrderID,
		CustomerName:    "Priza",
		CustomerPhone:   "628111095503",
		CustomerAddress: "Pinang Emas 1 B4",
		TransactionType: enum.TransactionTypeReguler,
		ReceivedAt:      demoTime("2025-10-15T09:17:00"),
		ExpectedAt:      demoTime("2025-10-16T09:17:00"),
		Status:          enum.OrderStatusSelesai,
		TotalAmount:     50000,
		PaidAmount:      0,
		BalanceDue:      &balance,
		IsPaid:          &paid,
		Timeline: []database.TimelineStep{
			{Step: "Order Diterima", Timestamp: demoTime("2025-10-15T09:17:00"), Staff: "Kasir Pangpol", Service: svc, Completed: true},
			{Step: "Cuci", Timestamp: demoTime("2025-10-15T14:56:00"), Staff: "DianiMY", Service: svc, Completed: true},
			{Step: "Kering", Timestamp: demoTime("2025-10-15T15:08:00"), Staff: "DianiMY", Service: svc, Completed: true},
			{Step: "Setrika", Timestamp: demoTime("2025-10-15T15:13:00"), Staff: "Ratih Pondok Labu", Service: svc, Completed: true},
			{Step: "Pengemasan", Timestamp: demoTime("2025-10-15T15:13:00"), Staff: "Ratih Pondok Labu", Service: svc, Completed: true},
			{Step: "Finishing", Timestamp: demoTime("2025-10-16T14:06:00"), Staff: "Kasir Pangpol", Service: svc, Completed: true},
			{Step: enum.StepDone, Timestamp: demoTime("2025-10-16T14:06:00"), Staff: "Kasir Pangpol", Service: "Siap diambil", Completed: true},
		},
		Photos: []string{
			"/stock_images/folded_clean_laundry_d1303af8.jpg",
			"/stock_images/folded_clean_laundry_c505cf98.jpg",
			"/stock_images/folded_clean_laundry_dee54f9a.jpg",
		},
		BusinessName:    "KLEEN Laundry & General Cleaning",
		BusinessAddress: "Ruko Grand Panglima Polim 90. Pulo, Kebayoran Baru - Adm. Jakarta Selatan",
		BusinessPhone:   "628119909933",
	}
}
