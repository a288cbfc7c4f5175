package library

import (
	"errors"
	"testing"
)

func addUser(t *testing.T, db *Database, username string) int64 {
	t.Helper()
	id, err := NewMembershipStore(db).Create(&User{Username: username}, "secret")
	if err != nil {
		t.Fatalf("add user %q: %v", username, err)
	}
	return id
}

func TestCreateAndAuthenticate(t *testing.T) {
	db := tempDB(t)
	users := NewMembershipStore(db)

	id, err := users.Create(&User{Username: "alice", Role: RoleAdmin, Email: "alice@example.com"}, "s3cret")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	u, err := users.GetByID(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.PasswordHash == "s3cret" {
		t.Fatalf("password stored in plaintext")
	}
	if !u.IsAdmin() {
		t.Fatalf("role not persisted")
	}

	got, err := users.Authenticate("alice", "s3cret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != id {
		t.Fatalf("authenticated wrong user")
	}

	if _, err := users.Authenticate("alice", "wrong"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bad password: want ErrNotFound, got %v", err)
	}
	if _, err := users.Authenticate("bob", "s3cret"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user: want ErrNotFound, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	db := tempDB(t)
	users := NewMembershipStore(db)

	if _, err := users.Create(&User{Username: ""}, "pw"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("empty username: want ErrInvalidRange, got %v", err)
	}
	if _, err := users.Create(&User{Username: "x"}, ""); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("empty password: want ErrInvalidRange, got %v", err)
	}
	if _, err := users.Create(&User{Username: "x", Role: "LIBRARIAN"}, "pw"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("bad role: want ErrInvalidRange, got %v", err)
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	db := tempDB(t)
	users := NewMembershipStore(db)

	addUser(t, db, "alice")
	if _, err := users.Create(&User{Username: "alice"}, "pw"); err == nil {
		t.Fatalf("expected duplicate username error")
	}

	exists, err := users.UsernameExists("alice")
	if err != nil || !exists {
		t.Fatalf("UsernameExists(alice) = %v, %v", exists, err)
	}
	exists, err = users.UsernameExists("bob")
	if err != nil || exists {
		t.Fatalf("UsernameExists(bob) = %v, %v", exists, err)
	}
}

func TestDeleteUserBlockedByOutstandingLoans(t *testing.T) {
	db := tempDB(t)
	users := NewMembershipStore(db)
	ledger := NewLedger(db, SystemClock{}, DefaultFinePerDay)

	bookID := addBook(t, db, "Borrowed", 1)
	userID := addUser(t, db, "alice")

	loanID, err := ledger.IssueLoan(userID, bookID, 14)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := users.Delete(userID); !errors.Is(err, ErrHasActiveLoans) {
		t.Fatalf("want ErrHasActiveLoans, got %v", err)
	}

	if _, err := ledger.ReturnLoan(loanID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := users.Delete(userID); err != nil {
		t.Fatalf("delete after return: %v", err)
	}
	if err := users.Delete(userID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestSetPassword(t *testing.T) {
	db := tempDB(t)
	users := NewMembershipStore(db)
	id := addUser(t, db, "alice")

	if err := users.SetPassword(id, "newpass"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if _, err := users.Authenticate("alice", "secret"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old password should fail, got %v", err)
	}
	if _, err := users.Authenticate("alice", "newpass"); err != nil {
		t.Fatalf("new password: %v", err)
	}

	if err := users.SetPassword(404, "pw"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: want ErrNotFound, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	db := tempDB(t)
	users := NewMembershipStore(db)
	id := addUser(t, db, "alice")

	u, _ := users.GetByID(id)
	u.Email = "alice@example.com"
	u.Role = RoleAdmin
	if err := users.Update(u); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := users.GetByID(id)
	if got.Email != "alice@example.com" || got.Role != RoleAdmin {
		t.Fatalf("profile not updated: %+v", got)
	}

	u.ID = 404
	if err := users.Update(u); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: want ErrNotFound, got %v", err)
	}
}

func TestListAndSearchUsers(t *testing.T) {
	db := tempDB(t)
	users := NewMembershipStore(db)

	for _, name := range []string{"carol", "alice", "bob"} {
		addUser(t, db, name)
	}

	all, err := users.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Username != "alice" {
		t.Fatalf("unexpected listing: %v", all)
	}

	res, err := users.Search("ali")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 1 || res[0].Username != "alice" {
		t.Fatalf("unexpected search result: %v", res)
	}
}
