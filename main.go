package main

import "inventory-backend/cmd"

// @title       Inventory API
// @version     1.0
// @description Device inventory: checkout / checkin / CRUD
// @BasePath    /api/v1

// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	cmd.Execute()
}
