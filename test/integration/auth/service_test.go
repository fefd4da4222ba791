// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

//go:build integration

package auth_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/passgate/passgate/internal/auth"
)

// uniqueEmail keeps specs independent without truncating tables.
func uniqueEmail(local string) string {
	return fmt.Sprintf("%s+%s@example.com", local, ulid.Make().String())
}

var _ = Describe("Service on PostgreSQL", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("Register", func() {
		It("creates the user and returns a working token", func() {
			email := uniqueEmail("ada")
			body := fmt.Sprintf(`{"fullName":"Ada Lovelace","email":%q,"password":"analytical"}`, email)

			result, err := env.service.Register(ctx, []byte(body))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Token).To(HavePrefix(auth.TokenPrefix))
			Expect(result.User.Email).To(Equal(email))

			user, err := env.service.Authenticate(ctx, result.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.ID).To(Equal(result.User.ID))
		})

		It("rejects an email that differs only in case", func() {
			email := uniqueEmail("grace")
			_, err := env.service.Register(ctx, []byte(fmt.Sprintf(`{"email":%q,"password":"cobol1959"}`, email)))
			Expect(err).NotTo(HaveOccurred())

			upper := fmt.Sprintf(`{"email":%q,"password":"cobol1959"}`, "GRACE"+email[len("grace"):])
			_, err = env.service.Register(ctx, []byte(upper))
			Expect(auth.KindOf(err)).To(Equal(auth.KindValidation))
			Expect(auth.FieldErrorsOf(err)["email"]).To(ContainElement("email has already been taken"))
		})

		It("admits exactly one of many concurrent registrations", func() {
			email := uniqueEmail("race")
			body := []byte(fmt.Sprintf(`{"email":%q,"password":"password1"}`, email))

			const workers = 10
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				conflicts int
			)
			for range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := env.service.Register(ctx, body)
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						successes++
						return
					}
					Expect(auth.KindOf(err)).To(Equal(auth.KindValidation))
					conflicts++
				}()
			}
			wg.Wait()

			Expect(successes).To(Equal(1))
			Expect(conflicts).To(Equal(workers - 1))
		})
	})

	Describe("Login", func() {
		var email string

		BeforeEach(func() {
			email = uniqueEmail("login")
			_, err := env.service.Register(ctx, []byte(fmt.Sprintf(`{"email":%q,"password":"correct horse"}`, email)))
			Expect(err).NotTo(HaveOccurred())
		})

		It("issues a distinct token per login", func() {
			body := []byte(fmt.Sprintf(`{"email":%q,"password":"correct horse"}`, email))
			first, err := env.service.Login(ctx, body)
			Expect(err).NotTo(HaveOccurred())
			second, err := env.service.Login(ctx, body)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Token).NotTo(Equal(second.Token))
		})

		It("fails identically for a wrong password and an unknown email", func() {
			_, wrong := env.service.Login(ctx, []byte(fmt.Sprintf(`{"email":%q,"password":"battery staple"}`, email)))
			_, unknown := env.service.Login(ctx, []byte(fmt.Sprintf(`{"email":%q,"password":"battery staple"}`, uniqueEmail("nobody"))))

			Expect(auth.KindOf(wrong)).To(Equal(auth.KindInvalidCredentials))
			Expect(auth.KindOf(unknown)).To(Equal(auth.KindInvalidCredentials))
			Expect(wrong.Error()).To(Equal(unknown.Error()))
		})
	})

	Describe("Logout", func() {
		It("revokes the token", func() {
			result, err := env.service.Register(ctx, []byte(fmt.Sprintf(`{"email":%q,"password":"password1"}`, uniqueEmail("bye"))))
			Expect(err).NotTo(HaveOccurred())

			Expect(env.service.Logout(ctx, result.Token)).To(Succeed())

			_, err = env.service.Authenticate(ctx, result.Token)
			Expect(auth.KindOf(err)).To(Equal(auth.KindUnauthenticated))
		})
	})

	Describe("Sweeper", func() {
		It("deletes tokens past their expiry", func() {
			user, err := auth.NewUser(nil, uniqueEmail("sweep"), "$argon2id$x", time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(env.backend.Users.Create(ctx, user)).To(Succeed())

			stale, err := auth.NewAccessToken(user.ID, time.Millisecond, time.Now().Add(-time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(env.backend.Tokens.Create(ctx, stale)).To(Succeed())

			sweeper, err := auth.NewSweeper(env.backend.Tokens)
			Expect(err).NotTo(HaveOccurred())
			n, err := sweeper.Sweep(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeNumerically(">=", 1))

			_, err = env.backend.Tokens.GetByID(ctx, stale.ID)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})
})
