package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"mppt_sweep/internal/models"
	"mppt_sweep/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestWebSocket_SnapshotThenLiveFrames(t *testing.T) {
	sw := &mockSweeper{
		progress: service.Progress{
			State:       service.StateRunning,
			RunID:       "run-7",
			TotalPoints: 11,
			PointsDone:  3,
			Samples: []models.Sample{
				models.NewSample(0, 0.5),
				models.NewSample(0.5, 0.49),
				models.NewSample(1, 0.47),
			},
		},
	}
	s := &service.Service{Sweeper: sw}
	stream := service.NewBroadcaster()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(s, stream, nil)
	r.GET("/ws", h.wsConnect)

	srv := httptest.NewServer(r)
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	type envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	// Initial frame is the controller snapshot so late joiners see the
	// points already collected.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if env.Type != "status" {
		t.Fatalf("expected status frame first, got %+v", env)
	}
	var prog service.Progress
	if err := json.Unmarshal(env.Data, &prog); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if prog.RunID != "run-7" || prog.PointsDone != 3 || len(prog.Samples) != 3 {
		t.Fatalf("unexpected snapshot: %+v", prog)
	}

	// The snapshot is written after subscribing, so the subscription is
	// live by now; push some output.
	sample := models.NewSample(1.5, 0.45)
	stream.OnSample(sample)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	env = envelope{}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read sample frame: %v", err)
	}
	if env.Type != "sample" {
		t.Fatalf("expected sample frame, got %+v", env)
	}
	var msg service.StreamMsg
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("unmarshal sample frame: %v", err)
	}
	if msg.Sample == nil || msg.Sample.Voltage != 1.5 {
		t.Fatalf("unexpected sample frame: %+v", msg)
	}

	// Terminal result frame
	mpp := models.NewSample(1.5, 0.45)
	stream.OnComplete(models.SweepResult{
		RunID:   "run-7",
		Status:  models.StatusCompleted,
		Samples: []models.Sample{sample},
		MPP:     &mpp,
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	env = envelope{}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read result frame: %v", err)
	}
	if env.Type != "result" {
		t.Fatalf("expected result frame, got %+v", env)
	}
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("unmarshal result frame: %v", err)
	}
	if msg.Result == nil || msg.Result.Status != models.StatusCompleted || msg.Result.MPP == nil {
		t.Fatalf("unexpected result frame: %+v", msg)
	}
}
