package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/xavierca1/gestion-leads/internal/entity"
)

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"

	exportSheetName = "Leads"
	exportDateFmt   = "02/01/2006"

	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var ErrNothingToExport = &DomainError{Code: CodeNothingToExport, Message: "No hay leads para exportar"}

// ExportColumns é a ordem fixa das colunas, independente da ordem dos campos no banco.
var ExportColumns = []string{
	"Fecha",
	"Origen",
	"Tipo",
	"Nombre",
	"Teléfono",
	"Email",
	"Mensaje",
	"Ubicación",
	"Superficie (m²)",
	"Habitaciones",
	"Renta deseada (€)",
	"Disponibilidad",
	"Acepta privacidad",
	"Acepta comunicaciones",
	"UTM Source",
	"UTM Medium",
	"UTM Campaign",
	"Estado",
}

var personaLabels = map[entity.Persona]string{
	entity.PersonaOwner:   "Propietario",
	entity.PersonaTenant:  "Inquilino",
	entity.PersonaCompany: "Empresa",
}

var statusLabels = map[entity.LeadStatus]string{
	entity.LeadStatusNew:       "Nuevo",
	entity.LeadStatusQualified: "Cualificado",
	entity.LeadStatusContacted: "Contactado",
	entity.LeadStatusScheduled: "Cita programada",
	entity.LeadStatusClosed:    "Cerrado",
}

func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportXLSX:
		return ExportXLSX, nil
	}
	return "", &DomainError{Code: CodeInvalidFormat, Message: "formato de exportación no soportado: " + s}
}

type ExportLeadsUseCase struct {
	Repo     entity.LeadRepositoryInterface
	Location *time.Location
	Now      func() time.Time
	Logger   *zap.Logger
}

func NewExportLeadsUseCase(repo entity.LeadRepositoryInterface, loc *time.Location, logger *zap.Logger) *ExportLeadsUseCase {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportLeadsUseCase{Repo: repo, Location: loc, Now: time.Now, Logger: logger}
}

func (uc *ExportLeadsUseCase) Execute(ctx context.Context, format ExportFormat) (*ExportFile, error) {
	leads, err := uc.Repo.FindAll(ctx)
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "erro ao buscar leads para exportação", Err: err}
	}
	if len(leads) == 0 {
		return nil, ErrNothingToExport
	}

	rows := make([][]string, 0, len(leads)+1)
	rows = append(rows, ExportColumns)
	for _, lead := range leads {
		rows = append(rows, uc.toRow(lead))
	}

	var data []byte
	var contentType string
	switch format {
	case ExportXLSX:
		data, err = writeXLSX(rows)
		contentType = ContentTypeXLSX
	default:
		format = ExportCSV
		data, err = writeCSV(rows)
		contentType = ContentTypeCSV
	}
	if err != nil {
		return nil, &TechnicalError{Code: "EXPORT_ERROR", Message: "erro ao gerar arquivo", Err: err}
	}

	uc.Logger.Info("leads exportados", zap.Int("rows", len(leads)), zap.String("format", string(format)))

	return &ExportFile{
		Filename:    fmt.Sprintf("leads_export_%s.%s", uc.Now().In(uc.Location).Format("2006-01-02"), format),
		ContentType: contentType,
		Data:        data,
		Rows:        len(leads),
	}, nil
}

func (uc *ExportLeadsUseCase) toRow(l *entity.Lead) []string {
	persona := personaLabels[l.Persona]
	if persona == "" {
		persona = string(l.Persona)
	}
	status := statusLabels[l.Status]
	if status == "" {
		status = string(l.Status)
	}

	var available string
	if l.AvailableFrom != nil {
		available = l.AvailableFrom.Format(exportDateFmt)
	}
	var rooms string
	if l.Rooms != nil {
		rooms = strconv.Itoa(*l.Rooms)
	}

	phone := l.Phone
	if !IsValidSpanishPhone(phone) {
		phone = spreadsheetSafe(phone)
	}

	return []string{
		l.CreatedAt.In(uc.Location).Format(exportDateFmt),
		spreadsheetSafe(l.Origin),
		persona,
		spreadsheetSafe(l.Name),
		phone,
		spreadsheetSafe(l.Email),
		spreadsheetSafe(l.Message),
		spreadsheetSafe(l.Location),
		formatSpanishNumber(l.AreaM2),
		rooms,
		formatSpanishNumber(l.DesiredRent),
		available,
		yesNo(l.PrivacyAccepted),
		yesNo(l.MarketingAccepted),
		spreadsheetSafe(l.UTMSource),
		spreadsheetSafe(l.UTMMedium),
		spreadsheetSafe(l.UTMCampaign),
		status,
	}
}

// spreadsheetSafe impede que texto do formulário vire fórmula ao abrir o arquivo.
func spreadsheetSafe(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}

func formatSpanishNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strings.Replace(strconv.FormatFloat(*v, 'f', -1, 64), ".", ",", 1)
}

// BOM para o Excel reconhecer UTF-8 (acentos e €).
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
		return nil, err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := row
		if err := f.SetSheetRow(exportSheetName, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
