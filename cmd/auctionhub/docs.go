package main

//go:generate swag init -g cmd/auctionhub/main.go -o docs

// @title           Auction Hub API
// @version         0.1.0
// @description     UK property auction lots, scrape control and run history.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
