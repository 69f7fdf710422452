package main

import (
	"context"
	"fmt"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/ahmedramy514/khadamli-darasi/core"
	"github.com/ahmedramy514/khadamli-darasi/core/account"
)

// addUser creates an account; it is the only way to create teacher accounts.
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)

	na := account.NewAccount{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Role:            role,
	}
	if err := na.Validate(validate); err != nil {
		return err
	}

	acc, err := cli.accounts.Create(context.Background(), na)
	if err != nil {
		return err
	}
	fmt.Printf("created %s account %s (%s)\n", acc.Role, acc.ID, acc.Email)
	return nil
}
