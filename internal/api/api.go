package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

type Lamp interface {
	Status() model.LampStatus
	SetPower(ctx context.Context, on bool) error
	SetBrightness(ctx context.Context, b model.Brightness) error
}

type Scheduler interface {
	Now() uint32
	NextAlarm() uint32
	Table() [7]uint32
	SetAlarm(day, hour, minute, second int) error
	SetTime(day, hour, minute, second int) error
}

type Server struct {
	lamp      Lamp
	scheduler Scheduler
}

type LampResponse struct {
	State      string `json:"state"`
	Brightness uint16 `json:"brightness"`
	Percent    int    `json:"percent"`
	Source     string `json:"source"`
	Fading     bool   `json:"fading"`
	Target     string `json:"target,omitempty"`
}

type PowerRequest struct {
	On *bool `json:"on"`
}

// BrightnessRequest takes either a raw compare value or a percentage.
type BrightnessRequest struct {
	Brightness *int `json:"brightness"`
	Percent    *int `json:"percent"`
}

type AlarmResponse struct {
	Day     string `json:"day"`
	Index   int    `json:"index"`
	Time    string `json:"time"`
	Enabled bool   `json:"enabled"`
}

type ClockRequest struct {
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

type TimeResponse struct {
	Counter   uint32 `json:"counter"`
	Day       string `json:"day"`
	Time      string `json:"time"`
	NextAlarm uint32 `json:"next_alarm"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewServer(lamp Lamp, scheduler Scheduler) *Server {
	return &Server{
		lamp:      lamp,
		scheduler: scheduler,
	}
}

// Handler returns the routed API with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	corsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		mux.ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/lamp", s.handleLamp)
	mux.HandleFunc("/api/lamp/", s.handleLampOperations)
	mux.HandleFunc("/api/alarms", s.handleAlarms)
	mux.HandleFunc("/api/alarms/", s.handleAlarmOperations)
	mux.HandleFunc("/api/time", s.handleTime)

	return corsHandler
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("Starting REST API server")

	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleLamp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	st := s.lamp.Status()
	resp := LampResponse{
		State:      string(st.State),
		Brightness: uint16(st.Brightness),
		Percent:    percent(st.Brightness),
		Source:     string(st.Source),
		Fading:     st.Fading,
	}
	if st.Fading {
		resp.Target = string(st.Target)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLampOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	switch strings.TrimPrefix(r.URL.Path, "/api/lamp/") {
	case "power":
		s.setPower(w, r)
	case "brightness":
		s.setBrightness(w, r)
	default:
		s.writeError(w, http.StatusNotFound, "Unknown operation")
	}
}

func (s *Server) setPower(w http.ResponseWriter, r *http.Request) {
	var req PowerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.On == nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := s.lamp.SetPower(r.Context(), *req.On); err != nil {
		log.Error().Err(err).Bool("on", *req.On).Msg("Failed to queue power change")
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	log.Info().Bool("on", *req.On).Msg("Lamp power set via API")
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) setBrightness(w http.ResponseWriter, r *http.Request) {
	var req BrightnessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	var b model.Brightness
	switch {
	case req.Brightness != nil:
		if *req.Brightness < int(model.MaxBrightness) || *req.Brightness > int(model.MinBrightness) {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid brightness. Must be between %d and %d", model.MaxBrightness, model.MinBrightness))
			return
		}
		b = model.Brightness(*req.Brightness)
	case req.Percent != nil:
		if *req.Percent < 0 || *req.Percent > 100 {
			s.writeError(w, http.StatusBadRequest, "Invalid percent. Must be between 0 and 100")
			return
		}
		b = fromPercent(*req.Percent)
	default:
		s.writeError(w, http.StatusBadRequest, "brightness or percent required")
		return
	}

	if err := s.lamp.SetBrightness(r.Context(), b); err != nil {
		log.Error().Err(err).Uint16("brightness", uint16(b)).Msg("Failed to queue brightness change")
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	log.Info().Uint16("brightness", uint16(b)).Msg("Lamp brightness set via API")
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleAlarms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || r.URL.Path != "/api/alarms" {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	table := s.scheduler.Table()
	resp := make([]AlarmResponse, 0, len(table))
	for day, secs := range table {
		resp = append(resp, AlarmResponse{
			Day:     model.DayNames[day],
			Index:   day,
			Time:    clock(secs),
			Enabled: secs != 0,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAlarmOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	day, ok := parseDay(strings.TrimPrefix(r.URL.Path, "/api/alarms/"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "Unknown day")
		return
	}

	var req ClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := s.scheduler.SetAlarm(day, req.Hour, req.Minute, req.Second); err != nil {
		log.Error().Err(err).Int("day", day).Msg("Failed to set alarm")
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Info().
		Str("day", model.DayNames[day]).
		Int("hour", req.Hour).
		Int("minute", req.Minute).
		Msg("Alarm updated via API")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTime(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		now := s.scheduler.Now()
		day, _, _, _ := model.SplitCounter(now)
		s.writeJSON(w, http.StatusOK, TimeResponse{
			Counter:   now,
			Day:       model.DayName(day),
			Time:      clock(now),
			NextAlarm: s.scheduler.NextAlarm(),
		})
	case http.MethodPut:
		var req ClockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := s.scheduler.SetTime(req.Day, req.Hour, req.Minute, req.Second); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Info().Int("day", req.Day).Int("hour", req.Hour).Int("minute", req.Minute).Msg("Time set via API")
		w.WriteHeader(http.StatusOK)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// parseDay accepts an index 0-6 or a day name such as "mon".
func parseDay(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 0 && n < 7
	}
	for i, name := range model.DayNames {
		if strings.EqualFold(name, s) {
			return i, true
		}
	}
	return 0, false
}

func clock(secs uint32) string {
	_, h, m, sec := model.SplitCounter(secs)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

func percent(b model.Brightness) int {
	return int(model.MinBrightness-model.ClampBrightness(int(b))) * 100 / int(model.MinBrightness)
}

func fromPercent(p int) model.Brightness {
	return model.ClampBrightness(int(model.MinBrightness) - p*int(model.MinBrightness)/100)
}
