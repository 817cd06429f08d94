package main

import "github.com/ValentinKolb/dCommerce/cmd"

func main() {
	cmd.Execute()
}
