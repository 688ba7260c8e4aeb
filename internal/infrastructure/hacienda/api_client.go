package hacienda

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ── Constantes de entorno ──────────────────────────────────────────────────────

const (
	// AppEnvProd es el identificador del ambiente de producción de Hacienda.
	AppEnvProd = "prod"
	// AppEnvSandbox es el identificador del ambiente de pruebas (stag/sandbox).
	AppEnvSandbox = "sandbox"

	baseURLProd    = "https://api.comprobanteselectronicos.go.cr/recepcion/v1"
	baseURLSandbox = "https://api-sandbox.comprobanteselectronicos.go.cr/recepcion/v1"

	// tokenSafetyMargin se resta a la expiración del token para no enviar
	// peticiones con un token a punto de vencer.
	tokenSafetyMargin = 30 * time.Second
)

// BaseURLForEnv resuelve la URL base de la API de recepción. Los alias
// "testing" y "test" apuntan al sandbox.
func BaseURLForEnv(env string) (string, error) {
	switch env {
	case AppEnvProd:
		return baseURLProd, nil
	case AppEnvSandbox, "testing", "test":
		return baseURLSandbox, nil
	default:
		return "", fmt.Errorf("hacienda: entorno desconocido %q (usar 'prod' o 'sandbox')", env)
	}
}

// ── Puerto (interfaz) ──────────────────────────────────────────────────────────

// Submission es el comprobante listo para enviar a la API de recepción.
type Submission struct {
	Clave               string
	FechaEmision        time.Time
	EmisorTipo          string
	EmisorNumero        string
	ReceptorTipo        string // opcional
	ReceptorNumero      string // opcional
	ConsecutivoReceptor string // opcional, solo mensajes de receptor
	XMLFirmado          []byte
	CallbackURL         string // opcional
}

// ReceptionStatus es el estado reportado por Hacienda para una clave.
type ReceptionStatus struct {
	Clave        string `json:"clave"`
	Fecha        string `json:"fecha"`
	IndEstado    string `json:"ind-estado"`
	RespuestaXML string `json:"respuesta-xml"` // Base64, puede venir vacío
}

// ReceptionSubmitter define el puerto de salida hacia la API de recepción.
// La implementación concreta usa HTTP; para tests se puede inyectar un mock.
type ReceptionSubmitter interface {
	// Authenticate obtiene un token nuevo con las credenciales del cliente.
	Authenticate(ctx context.Context) error
	// SubmitInvoice envía el comprobante firmado. Devuelve la URL de consulta
	// (header Location) cuando Hacienda la reporta.
	SubmitInvoice(ctx context.Context, sub Submission) (string, error)
	// FetchStatus consulta el estado de un comprobante por su clave.
	FetchStatus(ctx context.Context, clave string) (*ReceptionStatus, error)
}

// APIError encapsula una respuesta HTTP >= 400 de la API de recepción.
// Payload conserva el cuerpo crudo para diagnóstico.
type APIError struct {
	StatusCode int
	Payload    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hacienda: la API respondió %d: %s", e.StatusCode, e.Payload)
}

// ── Implementación HTTP ────────────────────────────────────────────────────────

// ReceptionClient implementa ReceptionSubmitter contra la API REST v1 de
// recepción. No reintenta: el llamador decide la política de reintentos.
type ReceptionClient struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewReceptionClient construye el cliente para el entorno dado. timeout
// aplica a cada petición HTTP; cero usa 30 s.
func NewReceptionClient(env, username, password string, timeout time.Duration) (*ReceptionClient, error) {
	baseURL, err := BaseURLForEnv(env)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReceptionClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		username:   username,
		password:   password,
	}, nil
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Authenticate obtiene un token contra POST /auth y registra su expiración
// leyendo el claim exp sin verificar la firma (la firma la valida Hacienda).
func (c *ReceptionClient) Authenticate(ctx context.Context) error {
	payload, err := json.Marshal(authRequest{Username: c.username, Password: c.password})
	if err != nil {
		return fmt.Errorf("hacienda: serializar credenciales: %w", err)
	}
	body, _, err := c.do(ctx, http.MethodPost, c.baseURL+"/auth", payload, "")
	if err != nil {
		return err
	}
	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("hacienda: parsear respuesta de autenticación: %w", err)
	}
	if resp.Token == "" {
		return &APIError{StatusCode: http.StatusOK, Payload: "respuesta de autenticación sin token"}
	}
	c.SetToken(resp.Token)
	return nil
}

// SetToken instala un token obtenido externamente. Si el token es un JWT con
// claim exp, la expiración se respeta; si no, el token se considera vigente
// hasta que la API responda 401.
func (c *ReceptionClient) SetToken(token string) {
	exp := time.Time{}
	if parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{}); err == nil {
		if t, err := parsed.Claims.GetExpirationTime(); err == nil && t != nil {
			exp = t.Time
		}
	}
	c.mu.Lock()
	c.token = token
	c.tokenExp = exp
	c.mu.Unlock()
}

func (c *ReceptionClient) currentToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return "", false
	}
	if !c.tokenExp.IsZero() && time.Now().After(c.tokenExp.Add(-tokenSafetyMargin)) {
		return "", false
	}
	return c.token, true
}

func (c *ReceptionClient) ensureToken(ctx context.Context) (string, error) {
	if token, ok := c.currentToken(); ok {
		return token, nil
	}
	if err := c.Authenticate(ctx); err != nil {
		return "", err
	}
	token, _ := c.currentToken()
	if token == "" {
		c.mu.Lock()
		token = c.token
		c.mu.Unlock()
	}
	return token, nil
}

type submissionEmisor struct {
	TipoIdentificacion   string `json:"tipoIdentificacion"`
	NumeroIdentificacion string `json:"numeroIdentificacion"`
}

type submissionRequest struct {
	Clave               string            `json:"clave"`
	Fecha               string            `json:"fecha"`
	Emisor              submissionEmisor  `json:"emisor"`
	Receptor            *submissionEmisor `json:"receptor,omitempty"`
	ConsecutivoReceptor string            `json:"consecutivoReceptor,omitempty"`
	CallbackURL         string            `json:"callbackUrl,omitempty"`
	ComprobanteXML      string            `json:"comprobanteXml"`
}

// SubmitInvoice envía el comprobante firmado a POST /recepcion con el XML en
// Base64. Devuelve la URL de consulta del header Location.
func (c *ReceptionClient) SubmitInvoice(ctx context.Context, sub Submission) (string, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return "", err
	}
	req := submissionRequest{
		Clave: sub.Clave,
		Fecha: sub.FechaEmision.Format("2006-01-02T15:04:05-07:00"),
		Emisor: submissionEmisor{
			TipoIdentificacion:   sub.EmisorTipo,
			NumeroIdentificacion: sub.EmisorNumero,
		},
		ConsecutivoReceptor: sub.ConsecutivoReceptor,
		CallbackURL:         sub.CallbackURL,
		ComprobanteXML:      base64.StdEncoding.EncodeToString(sub.XMLFirmado),
	}
	if sub.ReceptorTipo != "" && sub.ReceptorNumero != "" {
		req.Receptor = &submissionEmisor{
			TipoIdentificacion:   sub.ReceptorTipo,
			NumeroIdentificacion: sub.ReceptorNumero,
		}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("hacienda: serializar envío: %w", err)
	}
	_, headers, err := c.do(ctx, http.MethodPost, c.baseURL+"/recepcion", payload, token)
	if err != nil {
		return "", err
	}
	return headers.Get("Location"), nil
}

// FetchStatus consulta GET /recepcion/{clave}.
func (c *ReceptionClient) FetchStatus(ctx context.Context, clave string) (*ReceptionStatus, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}
	body, _, err := c.do(ctx, http.MethodGet, c.baseURL+"/recepcion/"+clave, nil, token)
	if err != nil {
		return nil, err
	}
	var status ReceptionStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("hacienda: parsear estado: %w", err)
	}
	return &status, nil
}

// do ejecuta una petición y normaliza los errores: fallos de red se
// propagan envueltos, los >= 400 se devuelven como *APIError.
func (c *ReceptionClient) do(ctx context.Context, method, url string, payload []byte, token string) ([]byte, http.Header, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("hacienda: crear request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("hacienda: timeout o cancelación: %w", ctx.Err())
		}
		return nil, nil, fmt.Errorf("hacienda: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, nil, fmt.Errorf("hacienda: leer respuesta: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, nil, &APIError{StatusCode: resp.StatusCode, Payload: string(body)}
	}
	return body, resp.Header, nil
}

var _ ReceptionSubmitter = (*ReceptionClient)(nil)
