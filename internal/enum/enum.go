package enum

// ── Group A: CHECK constrained in DB ──

const (
	UserRoleAdmin    = "admin"
	UserRoleKasir    = "kasir"
	UserRoleKurir    = "kurir"
	UserRoleProduksi = "produksi"
)

const (
	CustomerTypeReguler = "reguler"
	CustomerTypeMember  = "member"
)

const (
	BranchTypeProduction  = "production"
	BranchTypeDropOffOnly = "drop_off_only"
)

const (
	ServiceCategoryKiloan     = "kiloan"
	ServiceCategoryLuas       = "luas"
	ServiceCategoryUnit       = "unit"
	ServiceCategorySnapbridge = "snapbridge"
)

const (
	TransactionTypeReguler = "REGULER"
	TransactionTypeExpress = "EXPRESS"
)

// ── Group B: Display labels (no DB constraint) ──

const (
	PaymentBadgePaid   = "LUNAS"
	PaymentBadgeUnpaid = "BELUM_LUNAS"
)

const (
	OrderStatusProses  = "PROSES"
	OrderStatusSelesai = "SELESAI"
)

// StepDone is the label shown when no timeline step is pending.
const StepDone = "Selesai"

// ── Group C: Payment provider invoice statuses ──

const (
	InvoiceStatusPending = "PENDING"
	InvoiceStatusPaid    = "PAID"
	InvoiceStatusSettled = "SETTLED"
	InvoiceStatusExpired = "EXPIRED"
)

// Roles lists the employee roles in display order.
var Roles = []string{UserRoleAdmin, UserRoleKasir, UserRoleKurir, UserRoleProduksi}

// CustomerTypes lists the accepted customer types.
var CustomerTypes = []string{CustomerTypeReguler, CustomerTypeMember}
