package main

import (
	"fmt"
	"os"

	_ "authsystem/docs"
)

// @title Auth System API
// @version 1.0
// @description Регистрация, вход, обновление токенов и сброс пароля.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
