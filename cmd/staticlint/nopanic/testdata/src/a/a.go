package a

import (
	"errors"
	"log"
	"os"
)

func parse(id string) error {
	if id == "" {
		panic("empty id") // want "avoid panic outside package main, return an error instead"
	}
	if id == "exit" {
		os.Exit(1) // want "avoid os.Exit outside package main, return an error instead"
	}
	if id == "fatal" {
		log.Fatalf("bad id %s", id) // want "avoid log.Fatalf outside package main, return an error instead"
	}
	log.Printf("parsed %s", id)
	return errors.New("ok")
}

func shadowed() {
	panic := func(string) {}
	panic("not the builtin")
}
