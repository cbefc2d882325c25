// dianctl es una herramienta de línea de comandos para operar contra el
// servicio web de la DIAN sin pasar por la API HTTP: firmar un XML UBL,
// radicarlo y consultar el estado de un envío por TrackID.
//
// Uso:
//
//	dianctl sign   -in factura.xml -out factura_firmada.xml
//	dianctl send   -in factura.xml -prefix SETP -number 990000001
//	dianctl status -track d9fb6eb1-21ac-4a34-90c0-9e0b1f2d8f55
//
// La configuración (certificado, ambiente, TestSetId) se lee del entorno,
// igual que en cmd/api.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	infradian "github.com/tu-usuario/dian-fe/internal/infrastructure/dian"
	"github.com/tu-usuario/dian-fe/internal/infrastructure/dian/signer"
	"github.com/tu-usuario/dian-fe/internal/infrastructure/dian/soap"
	"github.com/tu-usuario/dian-fe/pkg/config"
	"github.com/tu-usuario/dian-fe/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fail("cargar configuración: %v", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: "warn"})

	var cmdErr error
	switch os.Args[1] {
	case "sign":
		cmdErr = runSign(cfg, os.Args[2:])
	case "send":
		cmdErr = runSend(cfg, log, os.Args[2:])
	case "status":
		cmdErr = runStatus(cfg, log, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if cmdErr != nil {
		fail("%v", cmdErr)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "uso: dianctl <sign|send|status> [flags]")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "dianctl: "+format+"\n", args...)
	os.Exit(1)
}

func loadMaterial(cfg *config.Config) (*signer.KeyMaterial, error) {
	mat, err := signer.LoadPKCS12File(cfg.DIAN.CertPath, cfg.DIAN.CertPassword)
	if err != nil {
		return nil, fmt.Errorf("cargar certificado: %w", err)
	}
	return mat, nil
}

// runSign firma un XML UBL y escribe el resultado.
func runSign(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	in := fs.String("in", "", "ruta del XML UBL sin firmar")
	out := fs.String("out", "", "ruta de salida (por defecto <in>_firmado.xml)")
	_ = fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("sign: falta -in")
	}
	if *out == "" {
		*out = *in + "_firmado.xml"
	}

	xmlBytes, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	mat, err := loadMaterial(cfg)
	if err != nil {
		return err
	}
	signed, err := signer.NewXadesSigner(mat).SignBytes(xmlBytes, time.Now())
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, signed, 0o644); err != nil {
		return err
	}
	fmt.Printf("firmado: %s\n", *out)
	return nil
}

// runSend firma, comprime y radica un XML, y espera el veredicto.
func runSend(cfg *config.Config, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	in := fs.String("in", "", "ruta del XML UBL sin firmar")
	prefix := fs.String("prefix", "", "prefijo del documento (ej: SETP)")
	number := fs.String("number", "", "consecutivo sin prefijo (ej: 990000001)")
	_ = fs.Parse(args)
	if *in == "" || *prefix == "" || *number == "" {
		return fmt.Errorf("send: faltan -in, -prefix o -number")
	}

	xmlBytes, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	mat, err := loadMaterial(cfg)
	if err != nil {
		return err
	}
	signed, err := signer.NewXadesSigner(mat).SignBytes(xmlBytes, time.Now())
	if err != nil {
		return err
	}

	xmlName, zipName := infradian.Filenames(cfg.DIAN.SupplierNIT, *prefix, *number)
	zipContent, err := infradian.CompressXMLToZip(signed, xmlName)
	if err != nil {
		return err
	}

	client := soap.NewClient(cfg.DIAN.Environment, mat, log,
		soap.WithRetryPolicy(cfg.DIAN.StatusRetries, time.Duration(cfg.DIAN.StatusWaitSec)*time.Second),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	var zipKey string
	if cfg.DIAN.IsProduction() {
		resp, err := client.SendBillAsync(ctx, zipName, zipContent)
		if err != nil {
			return err
		}
		zipKey = resp.ZipKey
	} else {
		resp, err := client.SendTestSetAsync(ctx, zipName, zipContent, cfg.DIAN.TestSetID)
		if err != nil {
			return err
		}
		zipKey = resp.ZipKey
	}
	fmt.Printf("radicado: ZipKey=%s\n", zipKey)

	status, err := client.VerifyStatusWithRetry(ctx, zipKey)
	if err != nil {
		return err
	}
	if status == nil {
		fmt.Println("estado: sin respuesta, consulte luego con dianctl status")
		return nil
	}
	printStatus(status)
	return nil
}

// runStatus consulta el estado de un envío por TrackID.
func runStatus(cfg *config.Config, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	track := fs.String("track", "", "ZipKey / TrackID del envío")
	_ = fs.Parse(args)
	if *track == "" {
		return fmt.Errorf("status: falta -track")
	}

	mat, err := loadMaterial(cfg)
	if err != nil {
		return err
	}
	client := soap.NewClient(cfg.DIAN.Environment, mat, log)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	status, err := client.GetStatusZip(ctx, *track)
	if err != nil {
		return err
	}
	printStatus(status)
	return nil
}

func printStatus(status *soap.StatusResponse) {
	switch {
	case status.Pending():
		fmt.Printf("estado: PENDIENTE (%s %s)\n", status.StatusCode, status.StatusDescription)
	case status.Accepted():
		fmt.Printf("estado: ACEPTADO (%s %s)\n", status.StatusCode, status.StatusDescription)
	default:
		fmt.Printf("estado: RECHAZADO (%s %s)\n", status.StatusCode, status.StatusDescription)
		for _, msg := range status.ErrorMessages {
			fmt.Printf("  - %s\n", msg)
		}
	}
}
