package main

import (
	"github.com/spisarov/cadenza/src"
)

func main() {
	src.Main()
}
