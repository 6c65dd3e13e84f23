// Package smartlink reads the SmartLink POS export and turns outlets and
// services into rows for the branches and services tables.
package smartlink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/kleen-pos/api/internal/enum"
)

// BintaroID is the SmartLink outlet id whose services are exported.
const BintaroID = "OTL15916123581223"

const msPerDay = 86_400_000

// Number accepts a JSON number, a numeric string, or null.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*n = Number{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("smartlink: invalid number %s", b)
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

// Or returns the value, or def when absent.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

type Workshop struct {
	Nama   string `json:"nama"`
	Alamat string `json:"alamat"`
	Kota   string `json:"kota"`
	Telp   string `json:"telp"`
}

// Outlet is one entry of all_outlets.json.
type Outlet struct {
	IDOutlet           string    `json:"idoutlet"`
	Nama               string    `json:"nama"`
	Kota               string    `json:"kota"`
	Telp               string    `json:"telp"`
	Alamat             string    `json:"alamat"`
	Latitude           Number    `json:"latitude"`
	Longitude          Number    `json:"longitude"`
	WorkshopIDWorkshop string    `json:"workshop_idworkshop"`
	Workshop           *Workshop `json:"workshop"`
	AbsenRadius        Number    `json:"absen_radius"`
	Pajak              Number    `json:"pajak"`
	Diskon             Number    `json:"diskon"`
	NotaTransaksi      string    `json:"nota_transaksi"`

	NotaBeliDeposit         string `json:"nota_beli_deposit"`
	NotaBeliEmoney          string `json:"nota_beli_emoney"`
	NotaDaftarMember        string `json:"nota_daftar_member"`
	NotaSuratJemput         string `json:"nota_surat_jemput"`
	NotaSuratAntar          string `json:"nota_surat_antar"`
	NotaSuratJemputWorkshop string `json:"nota_surat_jemput_workshop"`
	NotaSuratAntarWorkshop  string `json:"nota_surat_antar_workshop"`
	NotaTopupPaylink        string `json:"nota_topup_paylink"`

	Biaya            Number `json:"biaya"`
	BiayaTipe        Number `json:"biaya_tipe"`
	BiayaPengantaran Number `json:"biaya_pengantaran"`
	WajibBuktiTF     Number `json:"wajib_bukti_tf"`
	DisplayQRCode    Number `json:"display_qrcode"`
	DisplayBarcode   Number `json:"display_barcode"`
	EditableDiskon   Number `json:"editable_diskon"`
	EditablePajak    Number `json:"editable_pajak"`
	EditableBiaya    Number `json:"editable_biaya"`
	HideCustomer     Number `json:"hide_customer"`
	EnableExpress    Number `json:"enable_express"`
}

type Satuan struct {
	Nama string `json:"nama"`
}

type Layanan struct {
	IDLayanan          string  `json:"idlayanan"`
	NamaLayanan        string  `json:"nama_layanan"`
	DurasiPenyelesaian Number  `json:"durasi_penyelesaian"`
	Satuan             *Satuan `json:"satuan"`
}

type Snap struct {
	UseSnapbrige bool `json:"use_snapbrige"`
}

// Service is one entry of bintaro_services_merged.json.
type Service struct {
	Harga       Number   `json:"harga"`
	MinOrderReg Number   `json:"min_order_reg"`
	Snap        *Snap    `json:"snap"`
	Layanan     *Layanan `json:"layanan"`
}

// LoadOutlets reads an export shaped {"data": [{"outlet": {...}}]}.
func LoadOutlets(path string) ([]Outlet, error) {
	var raw struct {
		Data []struct {
			Outlet Outlet `json:"outlet"`
		} `json:"data"`
	}
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	out := make([]Outlet, len(raw.Data))
	for i, e := range raw.Data {
		out[i] = e.Outlet
	}
	return out, nil
}

// LoadServices reads an export shaped {"data": [{...}]}.
func LoadServices(path string) ([]Service, error) {
	var raw struct {
		Data []Service `json:"data"`
	}
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	return raw.Data, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// InferCategory maps a service to kiloan, luas, unit or snapbridge.
func InferCategory(s Service) string {
	if s.Snap != nil && s.Snap.UseSnapbrige {
		return enum.ServiceCategorySnapbridge
	}
	switch strings.ToUpper(s.unitName()) {
	case "KG":
		return enum.ServiceCategoryKiloan
	case "M2":
		return enum.ServiceCategoryLuas
	}
	return enum.ServiceCategoryUnit
}

func (s Service) unitName() string {
	if s.Layanan == nil || s.Layanan.Satuan == nil {
		return ""
	}
	return s.Layanan.Satuan.Nama
}

// TurnaroundDays converts a duration in milliseconds to whole days, rounding
// up. Zero, negative and missing durations count as one day.
func TurnaroundDays(ms float64) int {
	if ms <= 0 || math.IsNaN(ms) {
		return 1
	}
	return max(int(math.Ceil(ms/msPerDay)), 1)
}

// Row is a column -> value map for one insert.
type Row map[string]any

// Pick keeps only the keys of row listed in cols, preserving the order of
// cols, and returns them as parallel column and value slices.
func Pick(row Row, cols []string) ([]string, []any) {
	var names []string
	var values []any
	for _, c := range cols {
		if v, ok := row[c]; ok {
			names = append(names, c)
			values = append(values, v)
		}
	}
	return names, values
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optional(n Number) any {
	if !n.Valid {
		return nil
	}
	return n.Value
}

// BranchRow builds every branches column an outlet can fill. Settings is
// encoded as JSON.
func BranchRow(o Outlet) (Row, error) {
	settings := map[string]any{
		"nota_beli_deposit":          nullable(o.NotaBeliDeposit),
		"nota_beli_emoney":           nullable(o.NotaBeliEmoney),
		"nota_daftar_member":         nullable(o.NotaDaftarMember),
		"nota_surat_jemput":          nullable(o.NotaSuratJemput),
		"nota_surat_antar":           nullable(o.NotaSuratAntar),
		"nota_surat_jemput_workshop": nullable(o.NotaSuratJemputWorkshop),
		"nota_surat_antar_workshop":  nullable(o.NotaSuratAntarWorkshop),
		"nota_topup_paylink":         nullable(o.NotaTopupPaylink),
		"biaya":                      o.Biaya.Or(0),
		"biaya_tipe":                 o.BiayaTipe.Or(0),
		"biaya_pengantaran":          o.BiayaPengantaran.Or(0),
		"wajib_bukti_tf":             o.WajibBuktiTF.Or(0),
		"display_qrcode":             o.DisplayQRCode.Or(0),
		"display_barcode":            o.DisplayBarcode.Or(1),
		"editable_diskon":            o.EditableDiskon.Or(0),
		"editable_pajak":             o.EditablePajak.Or(0),
		"editable_biaya":             o.EditableBiaya.Or(0),
		"hide_customer":              o.HideCustomer.Or(0),
		"enable_express":             o.EnableExpress.Or(0),
		"workshop_name":              nil,
		"workshop_address":           nil,
		"workshop_city":              nil,
		"workshop_phone":             nil,
	}
	if w := o.Workshop; w != nil {
		settings["workshop_name"] = nullable(w.Nama)
		settings["workshop_address"] = nullable(w.Alamat)
		settings["workshop_city"] = nullable(w.Kota)
		settings["workshop_phone"] = nullable(w.Telp)
	}
	encoded, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings of %s: %w", o.IDOutlet, err)
	}

	branchType := enum.BranchTypeDropOffOnly
	if o.WorkshopIDWorkshop != "" {
		branchType = enum.BranchTypeProduction
	}

	return Row{
		"name":                  o.Nama,
		"city":                  nullable(o.Kota),
		"phone":                 nullable(o.Telp),
		"address":               nullable(o.Alamat),
		"type":                  branchType,
		"latitude":              optional(o.Latitude),
		"longitude":             optional(o.Longitude),
		"smartlink_id":          nullable(o.IDOutlet),
		"smartlink_workshop_id": nullable(o.WorkshopIDWorkshop),
		"absen_radius":          int(o.AbsenRadius.Or(100)),
		"pajak":                 o.Pajak.Or(0),
		"diskon":                o.Diskon.Or(0),
		"nota_transaksi":        nullable(o.NotaTransaksi),
		"settings":              encoded,
	}, nil
}

// ServiceRow builds every services column for s under branchID.
func ServiceRow(s Service, branchID any) Row {
	var name, id string
	var duration float64
	if l := s.Layanan; l != nil {
		name, id = l.NamaLayanan, l.IDLayanan
		duration = l.DurasiPenyelesaian.Or(0)
	}
	unit := s.unitName()
	if unit == "" {
		unit = "PCS"
	}
	return Row{
		"branch_id":       branchID,
		"name":            name,
		"category":        InferCategory(s),
		"price":           s.Harga.Or(0),
		"unit":            unit,
		"min_quantity":    s.MinOrderReg.Or(1),
		"turnaround_days": TurnaroundDays(duration),
		"smartlink_id":    nullable(id),
	}
}

// CategoryBreakdown counts services per inferred category.
func CategoryBreakdown(services []Service) map[string]int {
	out := map[string]int{}
	for _, s := range services {
		out[InferCategory(s)]++
	}
	return out
}
