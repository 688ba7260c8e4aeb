package billing_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovinlr/FE-CR/internal/application/billing"
	"github.com/rovinlr/FE-CR/internal/domain/entity"
	domhacienda "github.com/rovinlr/FE-CR/internal/domain/hacienda"
	infrahacienda "github.com/rovinlr/FE-CR/internal/infrastructure/hacienda"
	"github.com/rovinlr/FE-CR/pkg/config"
	pkghacienda "github.com/rovinlr/FE-CR/pkg/hacienda"
	"github.com/rovinlr/FE-CR/pkg/logger"
)

// ── dobles de prueba ──────────────────────────────────────────────────────────

type fakeDocRepo struct {
	docs map[string]*entity.ElectronicDocument
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: make(map[string]*entity.ElectronicDocument)}
}

func (r *fakeDocRepo) Create(doc *entity.ElectronicDocument) error {
	if doc.ID == "" {
		doc.ID = doc.Clave
	}
	copia := *doc
	r.docs[doc.Clave] = &copia
	return nil
}

func (r *fakeDocRepo) Update(doc *entity.ElectronicDocument) error {
	copia := *doc
	r.docs[doc.Clave] = &copia
	return nil
}

func (r *fakeDocRepo) GetByClave(clave string) (*entity.ElectronicDocument, error) {
	doc, ok := r.docs[clave]
	if !ok {
		return nil, nil
	}
	copia := *doc
	return &copia, nil
}

func (r *fakeDocRepo) ListByStatus(status string, limit int) ([]*entity.ElectronicDocument, error) {
	var out []*entity.ElectronicDocument
	for _, doc := range r.docs {
		if doc.Status == status && len(out) < limit {
			copia := *doc
			out = append(out, &copia)
		}
	}
	return out, nil
}

type fakeRenderer struct{ err error }

func (f *fakeRenderer) Render(inv *entity.ElectronicInvoice, validate bool) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("<FacturaElectronica/>"), nil
}

type fakeSigner struct{ err error }

func (f *fakeSigner) Sign(xmlBytes, p12 []byte, password string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append(xmlBytes, []byte("<!--firmado-->")...), nil
}

type fakeSubmitter struct {
	submitted []infrahacienda.Submission
	submitErr error
	status    *infrahacienda.ReceptionStatus
}

func (f *fakeSubmitter) Authenticate(ctx context.Context) error { return nil }

func (f *fakeSubmitter) SubmitInvoice(ctx context.Context, sub infrahacienda.Submission) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, sub)
	return "https://api/recepcion/" + sub.Clave, nil
}

func (f *fakeSubmitter) FetchStatus(ctx context.Context, clave string) (*infrahacienda.ReceptionStatus, error) {
	return f.status, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func testHaciendaConfig(t *testing.T) config.HaciendaConfig {
	t.Helper()
	certPath := filepath.Join(t.TempDir(), "cert.p12")
	require.NoError(t, os.WriteFile(certPath, []byte("p12 de prueba"), 0o600))
	return config.HaciendaConfig{
		Environment:  "sandbox",
		CertPath:     certPath,
		CertPassword: "pin",
		ActivityCode: "620100",
		Branch:       "1",
		Terminal:     "1",
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "development", Level: "error"})
}

func buildProcessInvoice() *entity.ElectronicInvoice {
	return &entity.ElectronicInvoice{
		Clave:             "50623082600310112345600100001010000000042112345678",
		NumeroConsecutivo: "00100001010000000042",
		FechaEmision:      time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
		Emisor: entity.Emisor{
			Nombre: "Emisor de Prueba",
			Identificacion: entity.Identification{
				Tipo:   pkghacienda.IdentificationTypeJuridica,
				Numero: "3101123456",
			},
		},
		CondicionVenta: pkghacienda.SaleConditionContado,
		MediosPago:     []pkghacienda.PaymentMethod{pkghacienda.PaymentMethodEfectivo},
		Resumen: entity.InvoiceSummary{
			CodigoMoneda:     "CRC",
			TotalComprobante: decimal.NewFromInt(113),
		},
	}
}

// ── PrepareInvoice ────────────────────────────────────────────────────────────

func TestPrepareInvoice_AsignaConsecutivoYClave(t *testing.T) {
	orq := billing.NewOrchestrator(newFakeDocRepo(), &fakeRenderer{}, &fakeSigner{},
		nil, testHaciendaConfig(t), testLogger())

	inv := buildProcessInvoice()
	inv.Clave = ""
	inv.NumeroConsecutivo = ""

	require.NoError(t, orq.PrepareInvoice(inv, 42, pkghacienda.DocTypeFacturaElectronica))
	assert.Equal(t, "001"+"00001"+"01"+"0000000042", inv.NumeroConsecutivo)
	assert.Len(t, inv.Clave, 50)
	assert.Contains(t, inv.Clave, inv.NumeroConsecutivo)
	assert.Equal(t, "620100", inv.CodigoActividad,
		"el código de actividad se toma de la configuración cuando la factura no lo trae")
}

func TestPrepareInvoice_NoSobreescribe(t *testing.T) {
	orq := billing.NewOrchestrator(newFakeDocRepo(), &fakeRenderer{}, &fakeSigner{},
		nil, testHaciendaConfig(t), testLogger())

	inv := buildProcessInvoice()
	inv.CodigoActividad = "721001"
	claveOriginal := inv.Clave

	require.NoError(t, orq.PrepareInvoice(inv, 99, pkghacienda.DocTypeFacturaElectronica))
	assert.Equal(t, claveOriginal, inv.Clave, "una clave ya asignada no se regenera")
	assert.Equal(t, "721001", inv.CodigoActividad,
		"un código de actividad ya asignado no se reemplaza por el configurado")
}

// ── Process ───────────────────────────────────────────────────────────────────

func TestProcess_CicloCompleto(t *testing.T) {
	repo := newFakeDocRepo()
	submitter := &fakeSubmitter{}
	orq := billing.NewOrchestrator(repo, &fakeRenderer{}, &fakeSigner{},
		submitter, testHaciendaConfig(t), testLogger())

	inv := buildProcessInvoice()
	require.NoError(t, orq.Process(context.Background(), inv, "move-123"))

	doc, err := repo.GetByClave(inv.Clave)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, entity.DocumentStatusSent, doc.Status)
	assert.Equal(t, "move-123", doc.SourceRecordID)
	assert.Contains(t, doc.XMLSigned, "firmado")
	require.NotNil(t, doc.SubmittedAt)

	require.Len(t, submitter.submitted, 1)
	assert.Equal(t, inv.Clave, submitter.submitted[0].Clave)
	assert.Equal(t, "3101123456", submitter.submitted[0].EmisorNumero)
}

func TestProcess_SinSubmitterQuedaFirmado(t *testing.T) {
	repo := newFakeDocRepo()
	orq := billing.NewOrchestrator(repo, &fakeRenderer{}, &fakeSigner{},
		nil, testHaciendaConfig(t), testLogger())

	inv := buildProcessInvoice()
	require.NoError(t, orq.Process(context.Background(), inv, ""))

	doc, _ := repo.GetByClave(inv.Clave)
	require.NotNil(t, doc)
	assert.Equal(t, entity.DocumentStatusSigned, doc.Status,
		"sin cliente de recepción el documento queda firmado sin enviar")
}

func TestProcess_ErrorDeValidacion(t *testing.T) {
	repo := newFakeDocRepo()
	vErr := &domhacienda.ValidationError{Campo: "Clave", Mensaje: "la clave debe tener 50 dígitos"}
	orq := billing.NewOrchestrator(repo, &fakeRenderer{err: vErr}, &fakeSigner{},
		&fakeSubmitter{}, testHaciendaConfig(t), testLogger())

	inv := buildProcessInvoice()
	err := orq.Process(context.Background(), inv, "")

	var got *domhacienda.ValidationError
	require.ErrorAs(t, err, &got, "el error de validación se propaga al llamador")

	doc, _ := repo.GetByClave(inv.Clave)
	require.NotNil(t, doc)
	assert.Equal(t, entity.DocumentStatusError, doc.Status)
	assert.Contains(t, doc.ErrorDetail, "Clave")
}

func TestProcess_ErrorDeEnvio(t *testing.T) {
	repo := newFakeDocRepo()
	apiErr := &infrahacienda.APIError{StatusCode: 400, Payload: "clave duplicada"}
	orq := billing.NewOrchestrator(repo, &fakeRenderer{}, &fakeSigner{},
		&fakeSubmitter{submitErr: apiErr}, testHaciendaConfig(t), testLogger())

	inv := buildProcessInvoice()
	err := orq.Process(context.Background(), inv, "")
	require.Error(t, err)

	doc, _ := repo.GetByClave(inv.Clave)
	require.NotNil(t, doc)
	assert.Equal(t, entity.DocumentStatusError, doc.Status)
	assert.Contains(t, doc.XMLSigned, "firmado",
		"el XML firmado se conserva aunque el envío falle")
}

func TestProcess_ErrorDeFirma(t *testing.T) {
	repo := newFakeDocRepo()
	orq := billing.NewOrchestrator(repo, &fakeRenderer{}, &fakeSigner{err: errors.New("p12 corrupto")},
		&fakeSubmitter{}, testHaciendaConfig(t), testLogger())

	inv := buildProcessInvoice()
	require.Error(t, orq.Process(context.Background(), inv, ""))

	doc, _ := repo.GetByClave(inv.Clave)
	require.NotNil(t, doc)
	assert.Equal(t, entity.DocumentStatusError, doc.Status)
	assert.Contains(t, doc.ErrorDetail, "firma")
}

// ── CheckStatus ───────────────────────────────────────────────────────────────

func TestCheckStatus_Aceptado(t *testing.T) {
	repo := newFakeDocRepo()
	inv := buildProcessInvoice()
	submitter := &fakeSubmitter{status: &infrahacienda.ReceptionStatus{
		Clave:        inv.Clave,
		IndEstado:    "aceptado",
		RespuestaXML: "PE1lbnNhamVIYWNpZW5kYS8+",
	}}
	orq := billing.NewOrchestrator(repo, &fakeRenderer{}, &fakeSigner{},
		submitter, testHaciendaConfig(t), testLogger())

	require.NoError(t, orq.Process(context.Background(), inv, ""))

	status, err := orq.CheckStatus(context.Background(), inv.Clave)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusAccepted, status)

	doc, _ := repo.GetByClave(inv.Clave)
	assert.Equal(t, entity.DocumentStatusAccepted, doc.Status)
	assert.NotEmpty(t, doc.ResponsePayload)
}

func TestCheckStatus_Rechazado(t *testing.T) {
	repo := newFakeDocRepo()
	inv := buildProcessInvoice()
	submitter := &fakeSubmitter{status: &infrahacienda.ReceptionStatus{
		Clave:        inv.Clave,
		IndEstado:    "rechazado",
		RespuestaXML: "PE1lbnNhamVIYWNpZW5kYS8+",
	}}
	orq := billing.NewOrchestrator(repo, &fakeRenderer{}, &fakeSigner{},
		submitter, testHaciendaConfig(t), testLogger())

	require.NoError(t, orq.Process(context.Background(), inv, ""))

	status, err := orq.CheckStatus(context.Background(), inv.Clave)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusRejected, status)
	assert.Equal(t, "REJECTED", status, "los estados persistidos comparten un solo idioma")
}

func TestCheckStatus_EnProcesoMantieneSent(t *testing.T) {
	repo := newFakeDocRepo()
	inv := buildProcessInvoice()
	submitter := &fakeSubmitter{status: &infrahacienda.ReceptionStatus{
		Clave:     inv.Clave,
		IndEstado: "procesando",
	}}
	orq := billing.NewOrchestrator(repo, &fakeRenderer{}, &fakeSigner{},
		submitter, testHaciendaConfig(t), testLogger())

	require.NoError(t, orq.Process(context.Background(), inv, ""))

	status, err := orq.CheckStatus(context.Background(), inv.Clave)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusSent, status,
		"mientras Hacienda procesa, el documento sigue en SENT")
}

func TestCheckStatus_DocumentoInexistente(t *testing.T) {
	orq := billing.NewOrchestrator(newFakeDocRepo(), &fakeRenderer{}, &fakeSigner{},
		&fakeSubmitter{}, testHaciendaConfig(t), testLogger())

	_, err := orq.CheckStatus(context.Background(), "50623082600310112345600100001010000000042112345678")
	assert.Error(t, err)
}
