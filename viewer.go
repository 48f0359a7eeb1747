package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/sketchbox/sketchbox/canvas"
	"github.com/sketchbox/sketchbox/protocol"
	"github.com/sketchbox/sketchbox/session"
)

func serveViewerPage(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := assets.ReadFile("assets/viewer/index.html")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_, _ = w.Write(data)
	}
}

func serveCanvasPNG(cfg *Config, sess *session.Session, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		img := sess.CanvasImage()
		if img == nil {
			http.Error(w, "canvas unavailable", http.StatusServiceUnavailable)
			return
		}

		var buf bytes.Buffer
		if err := canvas.EncodePNG(&buf, img); err != nil {
			http.Error(w, "encoding failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(buf.Bytes())
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Canvas frame (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveCanvasPDF(cfg *Config, sess *session.Session, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		img := sess.CanvasImage()
		if img == nil {
			http.Error(w, "canvas unavailable", http.StatusServiceUnavailable)
			return
		}

		var png bytes.Buffer
		if err := canvas.EncodePNG(&png, img); err != nil {
			http.Error(w, "encoding failed", http.StatusInternalServerError)
			return
		}

		bounds := img.Bounds()
		width := float64(bounds.Dx())
		height := float64(bounds.Dy())

		pdf := gofpdf.NewCustom(&gofpdf.InitType{
			UnitStr: "pt",
			Size:    gofpdf.SizeType{Wd: width, Ht: height},
		})
		pdf.AddPage()

		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("canvas", opts, &png)
		pdf.ImageOptions("canvas", 0, 0, width, height, false, opts, 0, "")

		var out bytes.Buffer
		if err := pdf.Output(&out); err != nil {
			http.Error(w, "pdf generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="sketchbox.pdf"`)
		securityHeaders(cfg, w)

		written, err := w.Write(out.Bytes())
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Canvas export (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveChat(cfg *Config, sess *session.Session, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		messages := sess.ChatHistory()
		if messages == nil {
			messages = []protocol.ChatMessage{}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(map[string]any{"messages": messages}); err != nil {
			errs <- err
		}
	}
}

func serveState(cfg *Config, sess *session.Session, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		payload := struct {
			session.Status
			Notice string `json:"notice,omitempty"`
		}{
			Status: sess.Status(),
			Notice: sess.Notice(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		if err := json.NewEncoder(w).Encode(payload); err != nil {
			errs <- err
		}
	}
}

// serveQR renders a QR code pointing at this viewer, so a phone on the
// same network can pull it up.
func serveQR(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		url := "http://" + r.Host + cfg.prefix + "/"

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

type drawInput struct {
	Phase string         `json:"phase"`
	Point protocol.Point `json:"point"`
}

func handleDrawInput(cfg *Config, sess *session.Session) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var in drawInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		var err error
		switch in.Phase {
		case "start":
			err = sess.DrawStart(in.Point)
		case "move":
			err = sess.Draw(in.Point)
		case "stop":
			err = sess.DrawStop()
		default:
			http.Error(w, "invalid phase", http.StatusBadRequest)
			return
		}

		writeInputResult(w, err)
	}
}

func handleChatInput(cfg *Config, sess *session.Session) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var in struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Text == "" {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		writeInputResult(w, sess.SendChat(in.Text))
	}
}

func handleStartInput(cfg *Config, sess *session.Session) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var in struct {
			Answer           string `json:"answer"`
			DelayUntilFinish int64  `json:"delayUntilFinish"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Answer == "" {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		delay := time.Duration(in.DelayUntilFinish) * time.Millisecond
		writeInputResult(w, sess.StartRound(r.Context(), in.Answer, delay))
	}
}

func writeInputResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, session.ErrNotAllowed), errors.Is(err, session.ErrSessionClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, protocol.ErrProtocolViolation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
