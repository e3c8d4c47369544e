package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/embeddb/embeddb"
	"github.com/embeddb/embeddb/core"
	"github.com/embeddb/embeddb/snap"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	port := flag.Int("port", 3306, "TCP port to listen on")
	engineName := flag.String("engine", "duckdb", "Embedded engine to use (duckdb, sqlite)")
	path := flag.String("path", "", "Database file path (in-memory if empty)")
	archiveDir := flag.String("archive", "", "Directory for snapshot archive (SNAPSHOT disabled if empty)")
	jwtSecret := flag.String("jwtSecret", "", "Shared secret for JWT authentication (disabled if empty)")
	jwtIssuer := flag.String("jwtIssuer", "", "Expected JWT issuer claim")
	tlsCert := flag.String("tlsCert", "", "TLS certificate file")
	tlsKey := flag.String("tlsKey", "", "TLS private key file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("EmbedDB SQL Server v%s\n", Version)
		return
	}

	if *path == "" {
		log.Printf("Using in-memory %s database", *engineName)
	} else {
		log.Printf("Using %s database: %s", *engineName, *path)
	}

	conn, err := embeddb.Open(*engineName, *path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	var server *Server
	if *jwtSecret != "" {
		server = NewServerWithAuth(conn, &AuthConfig{
			Enabled:   true,
			JWTSecret: *jwtSecret,
			Issuer:    *jwtIssuer,
		})
	} else {
		server = NewServer(conn, core.Identity{
			Name:  "EmbedDB Server",
			Email: "server@embeddb.local",
		})
	}

	if *archiveDir != "" {
		archive, err := snap.NewFileArchive(*archiveDir)
		if err != nil {
			log.Fatalf("Failed to open archive: %v", err)
		}
		server.SetArchive(archive)
	}

	addr := fmt.Sprintf(":%d", *port)
	if *tlsCert != "" && *tlsKey != "" {
		err = server.StartTLS(addr, *tlsCert, *tlsKey)
	} else {
		err = server.Start(addr)
	}
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Print banner
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Printf("║   EmbedDB SQL Server v%-15s ║\n", Version)
	fmt.Println("║   Embedded SQL over TCP               ║")
	fmt.Println("╚═══════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Engine: %s, listening on port %d\n", *engineName, *port)
	fmt.Println("Send SQL statements (one per line), 'quit' to disconnect")
	fmt.Println()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	server.Stop()
	log.Println("Server stopped")
}
