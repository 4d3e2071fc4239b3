package shell

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"

	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/internal/views"
)

// password returns args[i] or prompts for it.
func (s *Shell) password(name string, args []string, i int, prompt string) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	if s.readPassword == nil {
		return "", errors.NewNotValid(nil, "usage: "+s.commands[name].usage)
	}
	p, err := s.readPassword(prompt)
	return p, errors.Trace(err)
}

func (s *Shell) cmdLogin(ctx context.Context, args []string) error {
	if err := s.need("login", args, 1); err != nil {
		return err
	}
	password, err := s.password("login", args, 1, "password: ")
	if err != nil {
		return err
	}
	if _, err := s.login.Submit(ctx, args[0], password); err != nil {
		return err
	}
	s.takeExpired()
	return nil
}

func (s *Shell) cmdLogout(context.Context, []string) error {
	s.setInFlow(false)
	return views.Logout(s.deps)
}

// cmdRegister takes the passwords as the fifth and sixth arguments or
// prompts for them.
func (s *Shell) cmdRegister(ctx context.Context, args []string) error {
	if err := s.need("register", args, 4); err != nil {
		return err
	}
	data := models.RegisterData{Username: args[0], Email: args[1], FirstName: args[2], LastName: args[3]}
	var err error
	if data.Password, err = s.password("register", args, 4, "password: "); err != nil {
		return err
	}
	if data.PasswordConfirm, err = s.password("register", args, 5, "confirm password: "); err != nil {
		return err
	}
	_, err = s.register.Submit(ctx, data)
	return err
}

func (s *Shell) cmdMe(ctx context.Context, _ []string) error {
	user, err := s.profile.Open(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title("%s", user.Name())
	table := newTable()
	table.AddRow("username", user.Username)
	table.AddRow("email", user.Email)
	table.AddRow("role", string(user.Role))
	table.AddRow("phone", user.Phone)
	table.AddRow("address", user.Address)
	table.AddRow("member since", when(user.DateJoined))
	fmt.Fprintln(s.out, table)
	return nil
}

// cmdProfile keeps the current phone and address unless given.
func (s *Shell) cmdProfile(ctx context.Context, args []string) error {
	if err := s.need("profile", args, 2); err != nil {
		return err
	}
	user, err := s.profile.Open(ctx)
	if err != nil {
		return err
	}
	update := models.ProfileUpdate{
		FirstName: args[0],
		LastName:  args[1],
		Phone:     user.Phone,
		Address:   user.Address,
	}
	if len(args) > 2 {
		update.Phone = args[2]
	}
	if len(args) > 3 {
		update.Address = strings.Join(args[3:], " ")
	}
	_, err = s.profile.Submit(ctx, update)
	return err
}
