package main

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/embeddb/embeddb/core"
	"github.com/embeddb/embeddb/db"
	"github.com/embeddb/embeddb/snap"
)

// Server is a TCP SQL server over a shared database connection.
// Statements from all clients execute serially on one connection, so
// every client sees the same transaction state.
type Server struct {
	listener   net.Listener
	conn       *db.Connection
	archive    *snap.Archive
	identity   core.Identity
	authConfig *AuthConfig
	tlsEnabled bool
	mu         sync.Mutex
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewServer creates a server without authentication. All clients act
// under the given default identity.
func NewServer(conn *db.Connection, identity core.Identity) *Server {
	return &Server{
		conn:     conn,
		identity: identity,
		done:     make(chan struct{}),
	}
}

// NewServerWithAuth creates a server that requires clients to
// authenticate with an AUTH command before executing statements.
func NewServerWithAuth(conn *db.Connection, authConfig *AuthConfig) *Server {
	return &Server{
		conn:       conn,
		authConfig: authConfig,
		done:       make(chan struct{}),
	}
}

// SetArchive enables the SNAPSHOT command, committing table exports to
// the given archive.
func (s *Server) SetArchive(archive *snap.Archive) {
	s.archive = archive
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	log.Printf("SQL server listening on %s", listener.Addr())

	go s.acceptLoop()
	return nil
}

// StartTLS begins listening with TLS using the given certificate pair.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	listener, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to start TLS server: %w", err)
	}
	s.listener = listener
	s.tlsEnabled = true

	log.Printf("SQL server listening on %s (TLS)", listener.Addr())

	go s.acceptLoop()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// TLSEnabled reports whether the server was started with TLS.
func (s *Server) TLSEnabled() bool {
	return s.tlsEnabled
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				log.Printf("Accept error: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	log.Printf("Client connected: %s", conn.RemoteAddr())

	state := &ConnectionState{}
	reader := bufio.NewReader(conn)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		// Read until newline (one statement per line)
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				log.Printf("Read error from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}

		if strings.ToLower(query) == "quit" || strings.ToLower(query) == "exit" {
			log.Printf("Client disconnected: %s", conn.RemoteAddr())
			return
		}

		var response Response
		switch {
		case strings.HasPrefix(strings.ToUpper(query), "AUTH "):
			response = s.handleAuth(query, state)

		case s.authRequired() && !state.IsAuthenticated():
			response = Response{
				Success: false,
				Error:   "authentication required: send AUTH JWT <token> first",
			}

		case strings.HasPrefix(strings.ToUpper(query), "SNAPSHOT"):
			response = s.takeSnapshot(query, state)

		default:
			response = s.executeQuery(query)
		}

		data, err := EncodeResponse(response)
		if err != nil {
			log.Printf("Failed to encode response: %v", err)
			continue
		}

		_, err = conn.Write(data)
		if err != nil {
			log.Printf("Write error to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

func (s *Server) authRequired() bool {
	return s.authConfig != nil && s.authConfig.Enabled
}

func (s *Server) executeQuery(query string) Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	// COMMIT and ROLLBACK act on the shared connection's pending
	// transaction rather than going through a cursor.
	switch strings.ToUpper(strings.TrimSuffix(query, ";")) {
	case "COMMIT":
		return s.transactionControl(s.conn.Commit)
	case "ROLLBACK":
		return s.transactionControl(s.conn.Rollback)
	}

	cur := s.conn.Cursor()
	defer cur.Close()

	result, err := db.Run(cur, query)
	if err != nil {
		return Response{
			Success: false,
			Error:   err.Error(),
		}
	}

	switch r := result.(type) {
	case db.QueryResult:
		qr := QueryResponse{
			Columns:     r.Columns,
			Data:        make([][]string, len(r.Rows)),
			RecordsRead: r.RecordsRead,
			TimeMs:      r.ExecutionTimeSec * 1000,
		}
		for i, row := range r.Rows {
			qr.Data[i] = row.Strings()
		}
		data, _ := json.Marshal(qr)
		return Response{
			Success: true,
			Type:    "query",
			Result:  data,
		}

	case db.ExecResult:
		er := ExecResponse{
			RowsAffected: r.RowsAffected,
			LastInsertID: r.LastInsertID,
			TimeMs:       r.ExecutionTimeSec * 1000,
		}
		data, _ := json.Marshal(er)
		return Response{
			Success: true,
			Type:    "exec",
			Result:  data,
		}

	default:
		return Response{
			Success: true,
			Type:    "unknown",
		}
	}
}

// takeSnapshot handles "SNAPSHOT [message]". The authenticated identity
// becomes the commit author; unauthenticated clients use the server's
// default identity.
func (s *Server) takeSnapshot(query string, state *ConnectionState) Response {
	if s.archive == nil {
		return Response{
			Success: false,
			Error:   "no snapshot archive configured",
		}
	}

	message := "snapshot"
	if parts := strings.SplitN(strings.TrimSuffix(query, ";"), " ", 2); len(parts) == 2 {
		if m := strings.TrimSpace(parts[1]); m != "" {
			message = m
		}
	}

	identity := s.identity
	if state.Identity() != nil {
		identity = *state.Identity()
	}

	s.mu.Lock()
	snapshot, err := s.archive.Take(s.conn, identity, message)
	s.mu.Unlock()
	if err != nil {
		return Response{
			Success: false,
			Error:   err.Error(),
		}
	}

	data, _ := json.Marshal(SnapshotResponse{
		Hash:    snapshot.Hash,
		Author:  snapshot.Author,
		Message: snapshot.Message,
	})
	return Response{
		Success: true,
		Type:    "snapshot",
		Result:  data,
	}
}

func (s *Server) transactionControl(op func() error) Response {
	if err := op(); err != nil {
		return Response{
			Success: false,
			Error:   err.Error(),
		}
	}

	data, _ := json.Marshal(ExecResponse{})
	return Response{
		Success: true,
		Type:    "exec",
		Result:  data,
	}
}
