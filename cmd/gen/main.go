package main

import (
	"identity/internal/infra/persistence/model"

	"gorm.io/gen"
)

func main() {
	models := []any{
		model.AccountModel{},
	}

	gen := gen.NewGenerator(gen.Config{
		OutPath: "./internal/infra/persistence/database/query",
	})

	gen.ApplyBasic(models...)

	gen.Execute()
}
