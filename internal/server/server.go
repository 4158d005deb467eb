package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/emrgen/docscan/internal/blob"
	"github.com/emrgen/docscan/internal/dispatch"
	"github.com/emrgen/docscan/internal/export"
	"github.com/emrgen/docscan/internal/jobs"
	"github.com/emrgen/docscan/internal/metrics"
	"github.com/emrgen/docscan/internal/pipeline"
	"github.com/emrgen/docscan/internal/queue"
	"github.com/emrgen/docscan/internal/service"
)

const maxUploadSize = 64 << 20

var validate = validator.New()

// Deps are the components the HTTP API is served from.
type Deps struct {
	Documents  *service.DocumentService
	Signatures *service.SignatureService
	Scanner    *pipeline.Scanner
	Exporter   *export.Exporter
	Dispatcher *dispatch.Dispatcher
	Blobs      *blob.Store
	Metrics    *metrics.Metrics
	Publisher  queue.Publisher
	// ShareDir receives the artifacts of folder share targets.
	ShareDir string
}

// Server serves the document API over HTTP.
type Server struct {
	deps Deps
	mux  *http.ServeMux
}

func New(deps Deps) *Server {
	if deps.Publisher == nil {
		deps.Publisher = queue.NewNop()
	}

	s := &Server{deps: deps, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /v1/documents", s.scanDocument)
	s.mux.HandleFunc("GET /v1/documents", s.listDocuments)
	s.mux.HandleFunc("GET /v1/documents/{id}", s.getDocument)
	s.mux.HandleFunc("PATCH /v1/documents/{id}", s.updateDocument)
	s.mux.HandleFunc("DELETE /v1/documents/{id}", s.deleteDocument)
	s.mux.HandleFunc("POST /v1/documents/{id}/pages", s.addPages)
	s.mux.HandleFunc("PUT /v1/documents/{id}/pages/{number}", s.updatePage)
	s.mux.HandleFunc("DELETE /v1/documents/{id}/pages/{number}", s.deletePage)
	s.mux.HandleFunc("GET /v1/documents/{id}/pages/{number}/image", s.pageImage)
	s.mux.HandleFunc("POST /v1/documents/{id}/export", s.exportDocument)
	s.mux.HandleFunc("GET /v1/documents/{id}/exports/{file}", s.exportArtifact)
	s.mux.HandleFunc("POST /v1/documents/{id}/dispatch", s.dispatchDocument)

	s.mux.HandleFunc("POST /v1/signatures", s.createSignature)
	s.mux.HandleFunc("GET /v1/signatures", s.listSignatures)
	s.mux.HandleFunc("GET /v1/signatures/default", s.getDefaultSignature)
	s.mux.HandleFunc("GET /v1/signatures/{id}/image", s.signatureImage)
	s.mux.HandleFunc("PUT /v1/signatures/{id}/default", s.setDefaultSignature)
	s.mux.HandleFunc("DELETE /v1/signatures/{id}", s.deleteSignature)

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.deps.Metrics != nil {
		s.mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}
}

// Handler wraps the routes with cors, recovery and request logging.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // All origins are allowed
		AllowedMethods:   []string{"GET", "POST", "DELETE", "PUT", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return c.Handler(RequestTimeInterceptor(RecoverInterceptor(s.mux)))
}

// Start serves s on port and runs the background tasks until the process is
// interrupted.
func Start(port string, s *Server, tasks *jobs.TaskExecutor) error {
	httpPort := ":" + port

	rl, err := net.Listen("tcp", httpPort)
	if err != nil {
		return err
	}

	restServer := &http.Server{
		Addr:              httpPort,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if tasks != nil {
		if err := tasks.Run(); err != nil {
			_ = rl.Close()
			return fmt.Errorf("start background tasks: %w", err)
		}
		defer tasks.Stop()
	}

	// make sure to wait for the server to stop before exiting
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Info("starting http server on: ", httpPort)
		if err := restServer.Serve(rl); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logrus.Errorf("error starting http server: %v", err)
			}
		}
		logrus.Infof("http server stopped")
	}()

	logrus.Infof("Press Ctrl+C to stop the server")

	// listen for interrupt signal to gracefully shut down the server
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT, unix.SIGTSTP)
	<-sigs
	// clean Ctrl+C output
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := restServer.Shutdown(ctx); err != nil {
		logrus.Errorf("error stopping http server: %v", err)
	}

	wg.Wait()

	return nil
}
