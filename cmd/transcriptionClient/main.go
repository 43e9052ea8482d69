package main

import (
	"github.com/HarshitVashisht11/Transly/internal/app/client"
)

func main() {
	client.Execute()
}
