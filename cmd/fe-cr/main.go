package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rovinlr/FE-CR/internal/application/billing"
	"github.com/rovinlr/FE-CR/internal/domain/entity"
	infrahacienda "github.com/rovinlr/FE-CR/internal/infrastructure/hacienda"
	"github.com/rovinlr/FE-CR/internal/infrastructure/hacienda/signer"
	"github.com/rovinlr/FE-CR/internal/infrastructure/postgres"
	"github.com/rovinlr/FE-CR/pkg/config"
	pkghacienda "github.com/rovinlr/FE-CR/pkg/hacienda"
	"github.com/rovinlr/FE-CR/pkg/logger"
)

const usage = `uso:
  fe-cr process <factura.json> <secuencia>   genera, firma y envía el comprobante
  fe-cr status <clave>                       consulta el estado en Hacienda`

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("hacienda_env", cfg.Hacienda.Environment).
		Msg("iniciando aplicación")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	docRepo := postgres.NewDocumentRepository(pool)
	xmlBuilder := infrahacienda.NewXMLBuilderService()
	signerSvc := signer.NewXMLSignerService()

	// Cliente de recepción — sin credenciales el orquestador solo firma.
	var submitter infrahacienda.ReceptionSubmitter
	if cfg.Hacienda.Username != "" {
		client, err := infrahacienda.NewReceptionClient(
			cfg.Hacienda.Environment, cfg.Hacienda.Username, cfg.Hacienda.Password,
			cfg.Hacienda.RequestTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("cliente de recepción")
		}
		submitter = client
	}

	orchestrator := billing.NewOrchestrator(docRepo, xmlBuilder, signerSvc, submitter, cfg.Hacienda, log)

	switch os.Args[1] {
	case "process":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		runProcess(ctx, orchestrator, log, os.Args[2], os.Args[3])
	case "status":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		status, err := orchestrator.CheckStatus(ctx, os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("consultar estado")
		}
		fmt.Println(status)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func runProcess(ctx context.Context, orchestrator *billing.Orchestrator, log *logger.Logger, path, seqArg string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("archivo", path).Msg("leer factura")
	}
	var inv entity.ElectronicInvoice
	if err := json.Unmarshal(data, &inv); err != nil {
		log.Fatal().Err(err).Msg("parsear factura JSON")
	}

	var sequence int64
	if _, err := fmt.Sscanf(seqArg, "%d", &sequence); err != nil {
		log.Fatal().Err(err).Str("secuencia", seqArg).Msg("secuencia inválida")
	}

	if err := orchestrator.PrepareInvoice(&inv, sequence, pkghacienda.DocTypeFacturaElectronica); err != nil {
		log.Fatal().Err(err).Msg("asignar clave y consecutivo")
	}
	if err := orchestrator.Process(ctx, &inv, path); err != nil {
		log.Fatal().Err(err).Str("clave", inv.Clave).Msg("procesar comprobante")
	}
	fmt.Println(inv.Clave)
}
