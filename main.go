package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"marginalia/config/database"
	"marginalia/internal/render"
	"marginalia/pkg/logger"
	"marginalia/router"
	"marginalia/socket"
)

func main() {
	// Load environment variables from a .env file if present.
	if err := godotenv.Load(); err != nil {
		// Fall back to variables already set in the OS environment.
		_ = err
	}

	logger.Init()
	defer logger.Log.Sync()

	db := database.Connect()
	defer db.Close()

	// The hub fans comment/edit events out to readers viewing a
	// document. It owns no document state.
	hub := socket.NewHub(db)
	go hub.Run()

	handler := router.Setup(db, render.PlainText{}, hub)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	logger.Sugar.Infof("marginalia listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}
