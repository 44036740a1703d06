// Package main provides the CLI entry point for shadowcodec, a small
// tunnel endpoint built on the AEAD record layer in internal/aead.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/postalsys/shadowcodec/internal/aead"
	"github.com/postalsys/shadowcodec/internal/config"
	"github.com/postalsys/shadowcodec/internal/logging"
	"github.com/postalsys/shadowcodec/internal/metrics"
	"github.com/postalsys/shadowcodec/internal/replay"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "shadowcodec",
		Short:   "shadowcodec - streaming AEAD record layer tunnel endpoint",
		Version: Version,
	}

	var configPath string
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "shadowcodec.yaml", "path to config file")

	rootCmd.AddCommand(encryptCmd(&configPath))
	rootCmd.AddCommand(decryptCmd(&configPath))
	rootCmd.AddCommand(serveCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	return cfg, logger, nil
}

func encryptCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt",
		Short: "Seal stdin as a TCP chunk stream and write it to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			master, err := aead.NewMasterCipher(cfg.Password, cfg.Method, logger)
			if err != nil {
				return fmt.Errorf("new master cipher: %w", err)
			}
			enc, err := aead.NewEncryptContext(master)
			if err != nil {
				return fmt.Errorf("new encrypt context: %w", err)
			}
			defer enc.Release()

			plaintext, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			wire, err := enc.Encrypt(plaintext)
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}
			_, err = os.Stdout.Write(wire)
			return err
		},
	}
}

func decryptCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt",
		Short: "Open a TCP chunk stream read from stdin and write the plaintext to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			master, err := aead.NewMasterCipher(cfg.Password, cfg.Method, logger)
			if err != nil {
				return fmt.Errorf("new master cipher: %w", err)
			}

			var guard aead.SaltGuard
			if cfg.Role == config.RoleServer {
				guard = replay.New()
			}
			dec := aead.NewDecryptContext(master, guard)
			defer dec.Release()

			wire, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			plaintext, err := dec.Decrypt(wire)
			if err != nil && err != aead.ErrNeedMore {
				return fmt.Errorf("decrypt: %w", err)
			}
			_, err = os.Stdout.Write(plaintext)
			return err
		},
	}
}

// serveCmd runs a TCP listener that decrypts an incoming AEAD stream and
// echoes the plaintext back through a fresh encrypt context on the same
// connection, exercising a full session lifecycle (accept, install salt,
// decode chunks, re-encode, release) the way a real relay endpoint would,
// without the routing and ingress layers that sit around it in a full
// proxy deployment.
func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a TCP endpoint that decrypts and echoes an AEAD stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			master, err := aead.NewMasterCipher(cfg.Password, cfg.Method, logger)
			if err != nil {
				return fmt.Errorf("new master cipher: %w", err)
			}
			// The listener owns the only copy of the master key for this
			// tunnel's lifetime; wipe it only after every connection still
			// using it has drained, on every return path out of this
			// command. Defers run LIFO, so registering wg.Wait() here and
			// ln.Close() below makes the shutdown order Close, then Wait,
			// then Zero.
			var wg sync.WaitGroup
			defer master.Zero()
			defer wg.Wait()

			var guard aead.SaltGuard
			if cfg.Role == config.RoleServer {
				guard = replay.New()
			}

			m := metrics.Default()
			if cfg.Metrics.Enabled {
				go serveMetrics(cfg.Metrics.Addr, logger)
			}

			ln, err := net.Listen("tcp", cfg.Listen.TCP)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			defer ln.Close()
			logger.Info("listening",
				logging.KeyLocalAddr, cfg.Listen.TCP,
				logging.KeyMethod, cfg.Method,
				logging.KeyRole, cfg.Role,
			)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				ln.Close()
			}()

			for {
				conn, err := ln.Accept()
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					logger.Error("accept failed", logging.KeyError, err)
					continue
				}
				wg.Add(1)
				go func() {
					defer wg.Done()
					handleConn(conn, master, guard, m, logger)
				}()
			}
		},
	}
}

func handleConn(conn net.Conn, master *aead.MasterCipher, guard aead.SaltGuard, m *metrics.Metrics, logger *slog.Logger) {
	defer conn.Close()

	method := master.Method.String()
	m.SessionsActive.Inc()
	defer m.SessionsActive.Dec()

	dec := aead.NewDecryptContext(master, guard)
	defer dec.Release()
	enc, err := aead.NewEncryptContext(master)
	if err != nil {
		logger.Error("new encrypt context failed", logging.KeyError, err)
		return
	}
	defer enc.Release()

	logger.Info("connection accepted", logging.KeyRemoteAddr, conn.RemoteAddr().String())

	buf := make([]byte, 32*1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			plaintext, decErr := dec.Decrypt(buf[:n])
			switch decErr {
			case nil:
				m.ChunksDecrypted.WithLabelValues(method).Inc()
				m.BytesDecrypted.WithLabelValues(method).Add(float64(len(plaintext)))
				wire, encErr := enc.Encrypt(plaintext)
				if encErr != nil {
					logger.Error("encrypt failed", logging.KeyError, encErr)
					return
				}
				m.ChunksEncrypted.WithLabelValues(method).Inc()
				m.BytesEncrypted.WithLabelValues(method).Add(float64(len(plaintext)))
				if _, werr := conn.Write(wire); werr != nil {
					return
				}
			case aead.ErrNeedMore:
				m.NeedMoreStalls.Inc()
			case aead.ErrAuthFailed:
				m.AuthFailures.WithLabelValues(method).Inc()
				logger.Warn("authentication failed, closing connection", logging.KeyRemoteAddr, conn.RemoteAddr().String())
				return
			case aead.ErrReplay:
				m.ReplayRejected.WithLabelValues(method).Inc()
				logger.Warn("replayed salt, closing connection", logging.KeyRemoteAddr, conn.RemoteAddr().String())
				return
			case aead.ErrMalformedFrame:
				m.MalformedFrames.WithLabelValues(method).Inc()
				logger.Warn("malformed frame, closing connection", logging.KeyRemoteAddr, conn.RemoteAddr().String())
				return
			default:
				logger.Error("decrypt failed", logging.KeyError, decErr)
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics listening", logging.KeyLocalAddr, addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", logging.KeyError, err)
	}
}
