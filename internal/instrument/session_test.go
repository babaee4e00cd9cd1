package instrument

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"mppt_sweep/internal/logger"
	"mppt_sweep/internal/models"
)

// scriptConn records every command and answers queries from a script.
type scriptConn struct {
	writes    []string
	queries   []string
	responses map[string]string
	failWrite string // command whose Write fails
	failQuery bool
	closed    int
}

func (c *scriptConn) Write(cmd string) error {
	if cmd == c.failWrite {
		return errors.New("instrument rejected command")
	}
	c.writes = append(c.writes, cmd)
	return nil
}

func (c *scriptConn) Query(cmd string) (string, error) {
	c.queries = append(c.queries, cmd)
	if c.failQuery {
		return "", errors.New("read timeout")
	}
	return c.responses[cmd], nil
}

func (c *scriptConn) Close() error {
	c.closed++
	return nil
}

type fakeLink struct {
	conn    *scriptConn
	openErr error
}

func (l *fakeLink) Open(ctx context.Context, address string) (Conn, error) {
	if l.openErr != nil {
		return nil, l.openErr
	}
	return l.conn, nil
}

func newConnectedSession(t *testing.T, conn *scriptConn) *Session {
	t.Helper()
	if conn.responses == nil {
		conn.responses = map[string]string{}
	}
	if _, ok := conn.responses["*IDN?"]; !ok {
		conn.responses["*IDN?"] = "KEITHLEY INSTRUMENTS INC.,MODEL 2401,1234567,C30"
	}
	s, err := Connect(context.Background(), &fakeLink{conn: conn}, "10.0.0.5:5025", logger.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return s
}

func voltageSweepConfig() models.SweepConfig {
	return models.SweepConfig{
		StartVoltage:      0,
		StopVoltage:       5,
		Points:            6,
		CurrentCompliance: 0.5,
		SenseMode:         models.SenseTwoWire,
		Terminal:          models.TerminalFront,
		SourceMode:        models.SourceVoltage,
	}
}

func TestConnect_ResetsAndIdentifies(t *testing.T) {
	conn := &scriptConn{}
	s := newConnectedSession(t, conn)

	if len(conn.writes) == 0 || conn.writes[0] != "*RST" {
		t.Fatalf("first command must be *RST, got %v", conn.writes)
	}
	if s.Identity() == "" {
		t.Fatalf("identity must be surfaced")
	}
}

func TestConnect_FailuresAreConnectionErrors(t *testing.T) {
	_, err := Connect(context.Background(), &fakeLink{openErr: errors.New("no route")}, "10.0.0.9:5025", logger.Nop())
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if connErr.Address != "10.0.0.9:5025" {
		t.Fatalf("address missing from error: %v", connErr)
	}

	// identification timeout also surfaces as a ConnectionError, and the
	// half-open connection is released
	conn := &scriptConn{failQuery: true}
	_, err = Connect(context.Background(), &fakeLink{conn: conn}, "10.0.0.9:5025", logger.Nop())
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if conn.closed != 1 {
		t.Fatalf("connection must be closed after failed identify")
	}
}

func TestConfigure_IssuesCommandsInFixedOrder(t *testing.T) {
	conn := &scriptConn{}
	s := newConnectedSession(t, conn)

	cfg := voltageSweepConfig()
	cfg.SenseMode = models.SenseFourWire
	cfg.Terminal = models.TerminalRear
	cfg.VoltageCompliance = 21

	if err := s.Configure(cfg); err != nil {
		t.Fatalf("configure: %v", err)
	}

	want := []string{
		":SOUR:FUNC VOLT",
		`:SENS:FUNC "CURR"`,
		":SYST:RSEN ON",
		":ROUT:TERM REAR",
		":SENS:CURR:PROT 0.5",
		":SENS:VOLT:PROT 21",
		":OUTP ON",
		":SOUR:VOLT 0",
	}
	got := conn.writes[1:] // skip *RST from Connect
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("command order:\n got %v\nwant %v", got, want)
	}
}

func TestConfigure_CurrentSourceSensesVoltage(t *testing.T) {
	conn := &scriptConn{}
	s := newConnectedSession(t, conn)

	cfg := voltageSweepConfig()
	cfg.SourceMode = models.SourceCurrent
	if err := s.Configure(cfg); err != nil {
		t.Fatalf("configure: %v", err)
	}

	got := conn.writes[1:]
	if got[0] != ":SOUR:FUNC CURR" || got[1] != `:SENS:FUNC "VOLT"` {
		t.Fatalf("wrong source/sense functions: %v", got[:2])
	}
	if got[len(got)-1] != ":SOUR:CURR 0" {
		t.Fatalf("source must be zeroed in its own function: %v", got)
	}
}

func TestConfigure_RejectedStepReportsConfigurationError(t *testing.T) {
	conn := &scriptConn{failWrite: ":OUTP ON"}
	s := newConnectedSession(t, conn)

	err := s.Configure(voltageSweepConfig())
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Step != ":OUTP ON" {
		t.Fatalf("failing step must be named, got %q", cfgErr.Step)
	}
	// earlier steps stay applied: no rollback
	if conn.writes[len(conn.writes)-1] != ":SENS:CURR:PROT 0.5" {
		t.Fatalf("unexpected trailing command: %v", conn.writes)
	}
}

func TestDriveAndMeasure_InvertsMeasuredCurrent(t *testing.T) {
	conn := &scriptConn{responses: map[string]string{":READ?": "2.5,-0.125,9.91e37"}}
	s := newConnectedSession(t, conn)
	if err := s.Configure(voltageSweepConfig()); err != nil {
		t.Fatalf("configure: %v", err)
	}

	sample, err := s.DriveAndMeasure(2.5, 0)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if sample.Voltage != 2.5 {
		t.Fatalf("voltage: got %g", sample.Voltage)
	}
	if sample.Current != 0.125 {
		t.Fatalf("current must be sign-inverted: got %g", sample.Current)
	}
	if sample.Power != 2.5*0.125 {
		t.Fatalf("power must be derived: got %g", sample.Power)
	}
	if last := conn.writes[len(conn.writes)-1]; last != ":SOUR:VOLT 2.5" {
		t.Fatalf("setpoint not driven: %v", last)
	}
}

func TestDriveAndMeasure_BadResponsesAreMeasurementErrors(t *testing.T) {
	cases := []struct {
		name string
		resp string
	}{
		{"single field", "3.0"},
		{"non numeric", "ERR,ERR"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn := &scriptConn{responses: map[string]string{":READ?": tc.resp}}
			s := newConnectedSession(t, conn)

			_, err := s.DriveAndMeasure(1, 0)
			var measErr *MeasurementError
			if !errors.As(err, &measErr) {
				t.Fatalf("expected MeasurementError, got %v", err)
			}
			if measErr.Setpoint != 1 {
				t.Fatalf("setpoint must be carried, got %g", measErr.Setpoint)
			}
		})
	}
}

func TestShutdown_BestEffortAndIdempotent(t *testing.T) {
	conn := &scriptConn{failWrite: ":OUTP OFF"}
	s := newConnectedSession(t, conn)

	s.Shutdown() // the :OUTP OFF failure is swallowed
	s.Shutdown()

	if conn.closed != 1 {
		t.Fatalf("close must run exactly once, got %d", conn.closed)
	}
	if last := conn.writes[len(conn.writes)-1]; last != ":SOUR:VOLT 0" {
		t.Fatalf("source must be zeroed before output off: %v", conn.writes)
	}
}
