package billing

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rovinlr/FE-CR/internal/domain/entity"
	"github.com/rovinlr/FE-CR/internal/domain/repository"
	infrahacienda "github.com/rovinlr/FE-CR/internal/infrastructure/hacienda"
	"github.com/rovinlr/FE-CR/pkg/config"
	pkghacienda "github.com/rovinlr/FE-CR/pkg/hacienda"
	"github.com/rovinlr/FE-CR/pkg/logger"
)

// Orchestrator ejecuta el ciclo completo del comprobante:
//
//	Clave/Consecutivo → Validación → XML v4.4 → Firma XMLDSig → Envío → Update DB
//
// submitter puede ser nil: en ese caso el documento queda en SIGNED y no se
// envía (modo desarrollo, el XML firmado queda disponible para inspección).
type Orchestrator struct {
	docRepo   repository.ElectronicDocumentRepository
	renderer  XMLRenderer
	signer    XMLSigner
	submitter infrahacienda.ReceptionSubmitter
	cfg       config.HaciendaConfig
	log       *logger.Logger
}

// NewOrchestrator construye el orquestador con todas sus dependencias.
func NewOrchestrator(
	docRepo repository.ElectronicDocumentRepository,
	renderer XMLRenderer,
	signer XMLSigner,
	submitter infrahacienda.ReceptionSubmitter,
	cfg config.HaciendaConfig,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		docRepo:   docRepo,
		renderer:  renderer,
		signer:    signer,
		submitter: submitter,
		cfg:       cfg,
		log:       log,
	}
}

// PrepareInvoice asigna consecutivo y clave a una factura que aún no los
// tiene, y completa el código de actividad con el configurado cuando la
// factura no lo trae. sequence es el número correlativo del comprobante (lo
// administra el sistema anfitrión); docType es el código de documento
// ("01" factura).
func (o *Orchestrator) PrepareInvoice(inv *entity.ElectronicInvoice, sequence int64, docType string) error {
	if inv == nil {
		return fmt.Errorf("billing: la factura es obligatoria")
	}
	if inv.CodigoActividad == "" {
		inv.CodigoActividad = o.cfg.ActivityCode
	}
	if inv.NumeroConsecutivo == "" {
		consecutivo, err := pkghacienda.GenerateConsecutive(o.cfg.Branch, o.cfg.Terminal, docType, sequence)
		if err != nil {
			return err
		}
		inv.NumeroConsecutivo = consecutivo
	}
	if inv.Clave == "" {
		clave, err := pkghacienda.GenerateClave(pkghacienda.ClaveParams{
			Date:           inv.FechaEmision,
			Identification: inv.Emisor.Identificacion.Numero,
			Consecutive:    inv.NumeroConsecutivo,
			Situation:      pkghacienda.SituationNormal,
		})
		if err != nil {
			return err
		}
		inv.Clave = clave
	}
	return nil
}

// ProcessAsync dispara el procesamiento en una goroutine independiente con su
// propio timeout, desacoplado del ciclo de vida del llamador.
func (o *Orchestrator) ProcessAsync(inv *entity.ElectronicInvoice, sourceRecordID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := o.Process(ctx, inv, sourceRecordID); err != nil {
			o.log.Error().Err(err).Str("clave", inv.Clave).Msg("procesamiento del comprobante falló")
		}
	}()
}

// Process es el núcleo síncrono del orquestador. Siempre termina actualizando
// el estado del documento en la DB (SIGNED, SENT o ERROR).
func (o *Orchestrator) Process(ctx context.Context, inv *entity.ElectronicInvoice, sourceRecordID string) error {
	if inv == nil {
		return fmt.Errorf("billing: la factura es obligatoria")
	}

	log := o.log.With().Str("clave", inv.Clave).Str("consecutivo", inv.NumeroConsecutivo).Logger()

	doc := &entity.ElectronicDocument{
		Clave:          inv.Clave,
		Consecutivo:    inv.NumeroConsecutivo,
		SourceRecordID: sourceRecordID,
		Status:         entity.DocumentStatusDraft,
	}
	if existing, err := o.docRepo.GetByClave(inv.Clave); err != nil {
		return fmt.Errorf("billing: consultar documento: %w", err)
	} else if existing != nil {
		doc = existing
	} else if err := o.docRepo.Create(doc); err != nil {
		return fmt.Errorf("billing: crear documento: %w", err)
	}

	// markError deja el documento en ERROR con el detalle del paso fallido.
	markError := func(step string, cause error) error {
		doc.Status = entity.DocumentStatusError
		doc.ErrorDetail = step + ": " + cause.Error()
		if err := o.docRepo.Update(doc); err != nil {
			log.Error().Err(err).Msg("no se pudo persistir el estado ERROR")
		}
		log.Error().Err(cause).Str("paso", step).Msg("error procesando comprobante")
		return cause
	}

	// 1. Validación + XML
	xmlBytes, err := o.renderer.Render(inv, true)
	if err != nil {
		return markError("xml", err)
	}
	doc.Status = entity.DocumentStatusGenerated
	if err := o.docRepo.Update(doc); err != nil {
		log.Warn().Err(err).Msg("no se pudo persistir GENERATED")
	}

	// 2. Firma digital
	p12, err := os.ReadFile(o.cfg.CertPath)
	if err != nil {
		return markError("cert", fmt.Errorf("leer certificado: %w", err))
	}
	signedXML, err := o.signer.Sign(xmlBytes, p12, o.cfg.CertPassword)
	if err != nil {
		return markError("firma", err)
	}
	doc.Status = entity.DocumentStatusSigned
	doc.XMLSigned = string(signedXML)
	if err := o.docRepo.Update(doc); err != nil {
		return fmt.Errorf("billing: persistir SIGNED: %w", err)
	}

	// 3. Envío condicional a la API de recepción
	if o.submitter == nil {
		log.Info().Msg("sin cliente de recepción: el comprobante queda firmado sin enviar")
		return nil
	}

	sub := infrahacienda.Submission{
		Clave:        inv.Clave,
		FechaEmision: inv.FechaEmision,
		EmisorTipo:   inv.Emisor.Identificacion.Tipo,
		EmisorNumero: inv.Emisor.Identificacion.Numero,
		XMLFirmado:   signedXML,
	}
	if inv.Receptor != nil && inv.Receptor.Identificacion != nil {
		sub.ReceptorTipo = inv.Receptor.Identificacion.Tipo
		sub.ReceptorNumero = inv.Receptor.Identificacion.Numero
	}
	location, err := o.submitter.SubmitInvoice(ctx, sub)
	if err != nil {
		return markError("envio", err)
	}

	now := time.Now().UTC()
	doc.Status = entity.DocumentStatusSent
	doc.SubmittedAt = &now
	if err := o.docRepo.Update(doc); err != nil {
		return fmt.Errorf("billing: persistir SENT: %w", err)
	}
	log.Info().Str("location", location).Msg("comprobante enviado a Hacienda")
	return nil
}

// CheckStatus consulta el estado en Hacienda y actualiza el documento.
// Devuelve el estado final persistido.
func (o *Orchestrator) CheckStatus(ctx context.Context, clave string) (string, error) {
	if o.submitter == nil {
		return "", fmt.Errorf("billing: cliente de recepción no configurado")
	}
	doc, err := o.docRepo.GetByClave(clave)
	if err != nil {
		return "", fmt.Errorf("billing: consultar documento: %w", err)
	}
	if doc == nil {
		return "", fmt.Errorf("billing: documento %s no encontrado", clave)
	}

	status, err := o.submitter.FetchStatus(ctx, clave)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(status.IndEstado) {
	case "aceptado":
		doc.Status = entity.DocumentStatusAccepted
	case "rechazado":
		doc.Status = entity.DocumentStatusRejected
	default:
		// procesando, recibido: se mantiene SENT hasta resolución
	}
	doc.ResponsePayload = status.RespuestaXML
	if err := o.docRepo.Update(doc); err != nil {
		return "", fmt.Errorf("billing: persistir estado: %w", err)
	}

	o.log.Info().Str("clave", clave).Str("ind_estado", status.IndEstado).Str("estado", doc.Status).
		Msg("estado actualizado desde Hacienda")
	return doc.Status, nil
}
