//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	repoRootRel = ".."    // relative to ./e2e
	mainPkgRel  = "./cmd" // main.go lives in cmd/
	mqttTopic   = "smartcity/e2e"
)

var mqttPort = nat.Port("1883/tcp")

func TestSmoke_Dashboard(t *testing.T) {
	repoRoot := repoRootPath(t)
	brokerHost, brokerPort := startMosquitto(t)
	upstream := startUpstream(t)

	messages := subscribe(t, brokerHost, brokerPort)

	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := exec.Command(bin)
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=debug",
		"HTTP_ADDR="+addr,
		"SENSOR_FEED_URL="+upstream.URL+"/SensorData.json",
		"GEOCODER_URL="+upstream.URL+"/reverse",
		"POLL_INTERVAL=200ms",
		"DB_DRIVER=sqlite3",
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "dashboard.db"),
		"MQTT_BROKER="+brokerHost,
		"MQTT_PORT="+brokerPort,
		"MQTT_TOPIC="+mqttTopic,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr

	waitForOK(t, client, base+"/healthz", 10*time.Second)

	t.Run("healthz reports mqtt", func(t *testing.T) {
		var body map[string]string
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			getJSON(t, client, base+"/healthz", &body)
			if body["mqtt"] == "connected" {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		if body["status"] != "ok" || body["database"] != "ok" || body["mqtt"] != "connected" {
			t.Fatalf("healthz = %v", body)
		}
	})

	t.Run("latest reflects the feed", func(t *testing.T) {
		var state struct {
			Sample *struct {
				Temperature     float64 `json:"temperature"`
				PredictedCarbon float64 `json:"predictedCarbon"`
				LocationName    string  `json:"locationName"`
			} `json:"sample"`
			LocationValue string `json:"locationValue"`
		}
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			getJSON(t, client, base+"/api/v1/latest", &state)
			if state.Sample != nil {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		if state.Sample == nil {
			t.Fatal("no sample accepted")
		}
		if state.Sample.Temperature != 25 || state.Sample.PredictedCarbon != 420 {
			t.Errorf("sample = %+v", *state.Sample)
		}
		if state.Sample.LocationName != "Broadway, New York, United States" {
			t.Errorf("locationName = %q", state.Sample.LocationName)
		}
		if state.LocationValue != "40.7128, -74.0060" {
			t.Errorf("locationValue = %q", state.LocationValue)
		}
	})

	t.Run("sample published to broker", func(t *testing.T) {
		select {
		case msg := <-messages:
			var got map[string]any
			if err := json.Unmarshal(msg, &got); err != nil {
				t.Fatalf("payload is not JSON: %v", err)
			}
			if got["carbon"] != 400.0 || got["publishedAt"] == nil {
				t.Errorf("payload = %v", got)
			}
		case <-time.After(10 * time.Second):
			t.Fatal("no sample received on " + mqttTopic)
		}
	})

	t.Run("chart renders", func(t *testing.T) {
		resp, err := client.Get(base + "/charts/analytics.svg?metric=carbon")
		if err != nil {
			t.Fatalf("GET chart: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/svg+xml" {
			t.Errorf("chart status=%d type=%q", resp.StatusCode, resp.Header.Get("Content-Type"))
		}
	})

	stopServer(t, cmd)
}

func startUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /SensorData.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"location":"40.7128,-74.0060","temperature":25,"humidity":60,"carbon":400,"timestamp":%d}`,
			time.Now().UnixMilli())
	})
	mux.HandleFunc("GET /reverse", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"address":{"road":"Broadway","city":"New York","country":"United States"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func startMosquitto(t *testing.T) (host, port string) {
	t.Helper()

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{string(mqttPort)},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort(mqttPort).WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err = c.Host(ctx)
	if err != nil {
		t.Fatalf("mosquitto host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, mqttPort)
	if err != nil {
		t.Fatalf("mosquitto port: %v", err)
	}
	return host, mapped.Port()
}

func subscribe(t *testing.T, host, port string) <-chan []byte {
	t.Helper()

	out := make(chan []byte, 16)
	opts := paho.NewClientOptions().
		AddBroker("tcp://" + net.JoinHostPort(host, port)).
		SetClientID("smartcity-e2e-subscriber")
	client := paho.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("subscriber connect: %v", token.Error())
	}
	t.Cleanup(func() { client.Disconnect(250) })

	token := client.Subscribe(mqttTopic, 1, func(_ paho.Client, m paho.Message) {
		select {
		case out <- m.Payload():
		default:
		}
	})
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("subscribe: %v", token.Error())
	}
	return out
}

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), "smartcity-dashboard")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}

	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not healthy after %s: %s", timeout, url)
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}
