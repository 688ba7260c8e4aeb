package hacienda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeJWT fabrica un JWT sin firma con el claim exp dado, suficiente para que
// el cliente registre la expiración del token.
func makeJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]int64{"exp": exp.Unix()})
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "."
}

// testClient construye un cliente apuntando al servidor de prueba.
func testClient(serverURL string) *ReceptionClient {
	return &ReceptionClient{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    serverURL,
		username:   "cpf-01-1234-5678@stag.comprobanteselectronicos.go.cr",
		password:   "secreto",
	}
}

func buildTestSubmission() Submission {
	return Submission{
		Clave:        "50623082600310112345600100001010000000042112345678",
		FechaEmision: time.Date(2026, 8, 23, 10, 30, 0, 0, time.FixedZone("CR", -6*3600)),
		EmisorTipo:   "02",
		EmisorNumero: "3101123456",
		XMLFirmado:   []byte("<FacturaElectronica/>"),
	}
}

func TestBaseURLForEnv(t *testing.T) {
	prod, err := BaseURLForEnv(AppEnvProd)
	require.NoError(t, err)
	assert.Contains(t, prod, "api.comprobanteselectronicos.go.cr")

	for _, alias := range []string{AppEnvSandbox, "testing", "test"} {
		sandbox, err := BaseURLForEnv(alias)
		require.NoError(t, err)
		assert.Contains(t, sandbox, "api-sandbox", "el alias %q apunta al sandbox", alias)
	}

	_, err = BaseURLForEnv("qa")
	assert.Error(t, err, "entorno desconocido debe fallar")
}

func TestAuthenticate_GuardaToken(t *testing.T) {
	token := makeJWT(t, time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth", r.URL.Path)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "secreto", creds["password"])

		json.NewEncoder(w).Encode(map[string]string{"token": token})
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	require.NoError(t, client.Authenticate(context.Background()))

	current, ok := client.currentToken()
	assert.True(t, ok, "el token recién emitido debe estar vigente")
	assert.Equal(t, token, current)
}

func TestSubmitInvoice_PayloadYLocation(t *testing.T) {
	var got submissionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/recepcion", r.URL.Path)
		assert.Equal(t, "Bearer token-fijo", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Location", "https://"+r.Host+"/recepcion/"+got.Clave)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	client.SetToken("token-fijo")

	location, err := client.SubmitInvoice(context.Background(), buildTestSubmission())
	require.NoError(t, err)
	assert.Contains(t, location, "/recepcion/")

	assert.Equal(t, "50623082600310112345600100001010000000042112345678", got.Clave)
	assert.Equal(t, "2026-08-23T10:30:00-06:00", got.Fecha)
	assert.Equal(t, "02", got.Emisor.TipoIdentificacion)
	assert.Equal(t, "3101123456", got.Emisor.NumeroIdentificacion)
	assert.Nil(t, got.Receptor, "sin receptor el campo se omite")

	xmlBytes, err := base64.StdEncoding.DecodeString(got.ComprobanteXML)
	require.NoError(t, err)
	assert.Equal(t, "<FacturaElectronica/>", string(xmlBytes))
}

func TestSubmitInvoice_ErrorConPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"clave duplicada"}`)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	client.SetToken("token-fijo")

	_, err := client.SubmitInvoice(context.Background(), buildTestSubmission())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Payload, "clave duplicada")
}

func TestSubmitInvoice_ReautenticaTokenVencido(t *testing.T) {
	var authCalls int
	fresh := makeJWT(t, time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth":
			authCalls++
			json.NewEncoder(w).Encode(map[string]string{"token": fresh})
		case "/recepcion":
			assert.Equal(t, "Bearer "+fresh, r.Header.Get("Authorization"),
				"el envío debe usar el token renovado")
			w.WriteHeader(http.StatusAccepted)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	client.SetToken(makeJWT(t, time.Now().Add(-time.Minute))) // vencido

	_, err := client.SubmitInvoice(context.Background(), buildTestSubmission())
	require.NoError(t, err)
	assert.Equal(t, 1, authCalls, "el token vencido fuerza exactamente una reautenticación")
}

func TestFetchStatus_ParseaRespuesta(t *testing.T) {
	const clave = "50623082600310112345600100001010000000042112345678"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/recepcion/"+clave, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"clave":         clave,
			"ind-estado":    "aceptado",
			"respuesta-xml": base64.StdEncoding.EncodeToString([]byte("<MensajeHacienda/>")),
		})
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	client.SetToken("token-fijo")

	status, err := client.FetchStatus(context.Background(), clave)
	require.NoError(t, err)
	assert.Equal(t, clave, status.Clave)
	assert.Equal(t, "aceptado", status.IndEstado)
	assert.NotEmpty(t, status.RespuestaXML)
}

func TestFetchStatus_NoEncontrado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "clave no encontrada")
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	client.SetToken("token-fijo")

	_, err := client.FetchStatus(context.Background(), "50623082600310112345600100001010000000042112345678")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
