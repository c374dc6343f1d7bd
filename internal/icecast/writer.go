// Package icecast maintains the outbound source connection to an
// Icecast-compatible endpoint and writes Ogg pages to it byte-exactly.
package icecast

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yasashiisyndicate/ireul/internal/ogg"
	"github.com/yasashiisyndicate/ireul/pkg/errors"
)

const (
	connectTimeout = 5 * time.Second
	// writeTimeout bounds the time the tick thread can spend inside a
	// page write while holding the engine lock.
	writeTimeout  = 100 * time.Millisecond
	retryInterval = 2 * time.Second
)

// Options carries the stream metadata sent in the source handshake.
type Options struct {
	Name        string
	Description string
	URL         string
	Genre       string
}

// Writer is the Icecast page sink. It is owned exclusively by the tick
// thread. A failed write drops the connection; later writes reconnect,
// rate-limited by retryInterval, so a dead endpoint costs at most one dial
// per interval while the engine keeps draining pages at playback rate.
type Writer struct {
	endpoint  *url.URL
	opts      Options
	log       *zap.Logger
	conn      net.Conn
	nextRetry time.Time
}

// NewWriter parses the endpoint URL and establishes the initial connection.
func NewWriter(rawURL string, opts Options, log *zap.Logger) (*Writer, error) {
	endpoint, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.NewIcecastConnect(rawURL, err)
	}
	if endpoint.Host == "" || endpoint.Path == "" || endpoint.Path == "/" {
		return nil, errors.NewIcecastConnect(rawURL, fmt.Errorf("URL must include host and mount point"))
	}

	w := &Writer{endpoint: endpoint, opts: opts, log: log}
	if err := w.connect(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) addr() string {
	host := w.endpoint.Host
	if w.endpoint.Port() == "" {
		host = net.JoinHostPort(host, "8000")
	}
	return host
}

func (w *Writer) authorization() string {
	user := "source"
	pass := ""
	if w.endpoint.User != nil {
		user = w.endpoint.User.Username()
		pass, _ = w.endpoint.User.Password()
	}
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

func (w *Writer) connect() error {
	conn, err := net.DialTimeout("tcp", w.addr(), connectTimeout)
	if err != nil {
		return errors.NewIcecastConnect(w.addr(), err)
	}

	var req strings.Builder
	fmt.Fprintf(&req, "SOURCE %s HTTP/1.0\r\n", w.endpoint.Path)
	fmt.Fprintf(&req, "Host: %s\r\n", w.endpoint.Host)
	fmt.Fprintf(&req, "Authorization: Basic %s\r\n", w.authorization())
	fmt.Fprintf(&req, "Content-Type: application/ogg\r\n")
	fmt.Fprintf(&req, "User-Agent: ireul\r\n")
	if w.opts.Name != "" {
		fmt.Fprintf(&req, "Ice-Name: %s\r\n", w.opts.Name)
	}
	if w.opts.Description != "" {
		fmt.Fprintf(&req, "Ice-Description: %s\r\n", w.opts.Description)
	}
	if w.opts.URL != "" {
		fmt.Fprintf(&req, "Ice-URL: %s\r\n", w.opts.URL)
	}
	if w.opts.Genre != "" {
		fmt.Fprintf(&req, "Ice-Genre: %s\r\n", w.opts.Genre)
	}
	fmt.Fprintf(&req, "Ice-Public: 0\r\n\r\n")

	_ = conn.SetDeadline(time.Now().Add(connectTimeout))
	if _, err := conn.Write([]byte(req.String())); err != nil {
		conn.Close()
		return errors.NewIcecastConnect(w.addr(), err)
	}

	status, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		conn.Close()
		return errors.NewIcecastConnect(w.addr(), err)
	}
	if !strings.Contains(status, "200") {
		conn.Close()
		return errors.NewIcecastConnect(w.addr(),
			fmt.Errorf("source rejected: %s", strings.TrimSpace(status)))
	}

	_ = conn.SetDeadline(time.Time{})
	w.conn = conn
	w.log.Info("connected to icecast", zap.String("host", w.addr()),
		zap.String("mount", w.endpoint.Path))
	return nil
}

// WritePage sends one page. On failure the connection is dropped and the
// page is lost; the caller logs and carries on.
func (w *Writer) WritePage(page ogg.Page) error {
	if w.conn == nil {
		if time.Now().Before(w.nextRetry) {
			return errors.NewIcecastWrite(fmt.Errorf("disconnected"))
		}
		if err := w.connect(); err != nil {
			w.nextRetry = time.Now().Add(retryInterval)
			return errors.NewIcecastWrite(err)
		}
	}

	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := w.conn.Write(page.Bytes()); err != nil {
		w.conn.Close()
		w.conn = nil
		w.nextRetry = time.Now().Add(retryInterval)
		return errors.NewIcecastWrite(err)
	}
	return nil
}

// Close shuts the source connection down.
func (w *Writer) Close() error {
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}
