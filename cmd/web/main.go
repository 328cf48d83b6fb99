package main

import "keyshop_backend/internal/app"

func main() {
	app.Run()
}
