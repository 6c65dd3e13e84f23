package orderstatus

import (
	"strings"

	"github.com/kleen-pos/api/internal/enum"
)

// PaymentBadge is LUNAS when the order is paid and BELUM_LUNAS otherwise.
// Only isPaid is consulted.
func PaymentBadge(o Order) string {
	if o.IsPaid {
		return enum.PaymentBadgePaid
	}
	return enum.PaymentBadgeUnpaid
}

// BadgeLabel is the human form of a badge, "BELUM LUNAS" for BELUM_LUNAS.
func BadgeLabel(badge string) string {
	return strings.ReplaceAll(badge, "_", " ")
}

// CurrentStepLabel returns the first incomplete step in stored order, or
// "Selesai" when every step (or none) is completed.
func CurrentStepLabel(timeline []TimelineStep) string {
	for _, s := range timeline {
		if !s.Completed {
			return s.Step
		}
	}
	return enum.StepDone
}

// ProgressPercent is the stored progress clamped to [0, 100].
func ProgressPercent(o Order) int {
	return min(max(o.Progress, 0), 100)
}

// ContactLinks are the call, WhatsApp and SMS targets for the business.
type ContactLinks struct {
	Call     string `json:"call"`
	WhatsApp string `json:"whatsapp"`
	SMS      string `json:"sms"`
}

// Contacts builds links from a 62-prefixed phone number.
func Contacts(phone string) ContactLinks {
	return ContactLinks{
		Call:     "tel:+" + phone,
		WhatsApp: "https://wa.me/" + phone,
		SMS:      "sms:+" + phone,
	}
}

// StepView is a timeline step ready for display.
type StepView struct {
	Step      string `json:"step"`
	Time      string `json:"time"`
	Staff     string `json:"staff"`
	Service   string `json:"service"`
	Completed bool   `json:"completed"`
	Marker    Marker `json:"marker"`
	// Connector is true when the line to the next step is filled.
	Connector bool `json:"connector"`
}

// Projection is everything the status page renders for one order.
type Projection struct {
	OrderID         string       `json:"orderId"`
	CustomerName    string       `json:"customerName"`
	TransactionType string       `json:"transactionType"`
	Express         bool         `json:"express"`
	ReceivedDate    string       `json:"receivedDate"`
	ReceivedTime    string       `json:"receivedTime"`
	ExpectedDate    string       `json:"expectedDate"`
	ExpectedTime    string       `json:"expectedTime"`
	Progress        int          `json:"progress"`
	CurrentStep     string       `json:"currentStep"`
	Timeline        []StepView   `json:"timeline"`
	Photos          []string     `json:"photos"`
	PhotoCount      int          `json:"photoCount"`
	TotalAmount     string       `json:"totalAmount"`
	PaidAmount      string       `json:"paidAmount"`
	BalanceDue      string       `json:"balanceDue"`
	PaymentBadge    string       `json:"paymentBadge"`
	IsPaid          bool         `json:"isPaid"`
	BusinessName    string       `json:"businessName"`
	BusinessAddress string       `json:"businessAddress"`
	Contacts        ContactLinks `json:"contacts"`
}

// Project derives the display fields of o.
func Project(o Order) Projection {
	markers := Markers(o.Timeline)
	connectors := Connectors(o.Timeline)

	steps := make([]StepView, len(o.Timeline))
	for i, s := range o.Timeline {
		steps[i] = StepView{
			Step:      s.Step,
			Time:      FormatTime(s.Timestamp),
			Staff:     s.Staff,
			Service:   s.Service,
			Completed: s.Completed,
			Marker:    markers[i],
		}
		if i < len(connectors) {
			steps[i].Connector = connectors[i]
		}
	}

	photos := o.Photos
	if photos == nil {
		photos = []string{}
	}

	return Projection{
		OrderID:         o.OrderID,
		CustomerName:    o.CustomerName,
		TransactionType: o.TransactionType,
		Express:         o.TransactionType == enum.TransactionTypeExpress,
		ReceivedDate:    FormatDate(o.ReceivedAt),
		ReceivedTime:    FormatTime(o.ReceivedAt),
		ExpectedDate:    FormatDate(o.ExpectedAt),
		ExpectedTime:    FormatTime(o.ExpectedAt),
		Progress:        ProgressPercent(o),
		CurrentStep:     CurrentStepLabel(o.Timeline),
		Timeline:        steps,
		Photos:          photos,
		PhotoCount:      len(photos),
		TotalAmount:     FormatCurrency(o.TotalAmount),
		PaidAmount:      FormatCurrency(o.PaidAmount),
		BalanceDue:      FormatCurrency(o.BalanceDue),
		PaymentBadge:    PaymentBadge(o),
		IsPaid:          o.IsPaid,
		BusinessName:    o.BusinessName,
		BusinessAddress: o.BusinessAddress,
		Contacts:        Contacts(o.BusinessPhone),
	}
}
