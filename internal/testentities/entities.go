// Package testentities holds the domain fixtures shared by the converter,
// storage and template tests.
package testentities

import (
	"time"

	"github.com/ajitpratap0/colmap/pkg/mapping"
)

// Computer is immutable and built through NewComputer.
type Computer struct {
	id    int64  `column:"_id"`
	name  string `column:"name"`
	age   int    `column:"age"`
	model string `column:"model"`
	price Money  `column:"price"`
}

func NewComputer(id int64, name string, age int, model string, price Money) Computer {
	return Computer{id: id, name: name, age: age, model: model, price: price}
}

func (c Computer) ID() int64     { return c.id }
func (c Computer) Name() string  { return c.name }
func (c Computer) Age() int      { return c.age }
func (c Computer) Model() string { return c.model }
func (c Computer) Price() Money  { return c.price }

// Animal is embedded in PetOwner.
type Animal struct {
	ID   int64  `column:"_id"`
	Name string `column:"name"`
}

// PetOwner is populated field by field.
type PetOwner struct {
	ID     int64  `column:"_id"`
	Name   string `column:"name"`
	Animal Animal `column:"animal"`
}

// Adopter is a pet owner built through NewAdopter, so its embedded Animal
// arrives as a constructor parameter.
type Adopter struct {
	id     int64  `column:"_id"`
	name   string `column:"name"`
	animal Animal `column:"animal"`
}

func NewAdopter(id int64, name string, animal Animal) Adopter {
	return Adopter{id: id, name: name, animal: animal}
}

func (a Adopter) ID() int64      { return a.id }
func (a Adopter) Name() string   { return a.name }
func (a Adopter) Animal() Animal { return a.animal }

// Book is an element of BookUser's collection.
type Book struct {
	ID   int64  `column:"_id"`
	Name string `column:"name"`
}

// BookUser is immutable and built through NewBookUser.
type BookUser struct {
	nickname string `column:"_id"`
	name     string `column:"native_name"`
	books    []Book `column:"books"`
}

func NewBookUser(nickname, name string, books []Book) *BookUser {
	return &BookUser{nickname: nickname, name: name, books: books}
}

func (u *BookUser) Nickname() string { return u.nickname }
func (u *BookUser) Name() string     { return u.name }
func (u *BookUser) Books() []Book    { return u.books }

// Job is a collection element referenced by pointer.
type Job struct {
	Description string `column:"description"`
	City        string `column:"city"`
}

// Address is an optional embedded entity.
type Address struct {
	Street string `column:"street"`
	City   string `column:"city"`
	Zip    int    `column:"zip"`
}

// Person exercises the field strategy with optional, temporal and scalar
// collection members.
type Person struct {
	ID       int64     `column:"_id"`
	Name     string    `column:"name"`
	Phones   []string  `column:"phones"`
	Birthday time.Time `column:"birthday"`
	Nickname *string   `column:"nickname"`
	Address  *Address  `column:"address"`
	Jobs     []*Job    `column:"jobs"`
	Tags     map[string]string
	Notes    string `column:"-"`
}

// Worker stores its salary as integer cents through an explicit converter.
type Worker struct {
	ID     int64  `column:"_id"`
	Name   string `column:"name"`
	Salary Money  `column:"salary"`
	Job    Job    `column:"job"`
}

// Director is stored under the entity name Executive.
type Director struct {
	ID    int64  `column:"_id"`
	Name  string `column:"name"`
	Board []Job  `column:"board"`
}

func (Director) EntityName() string { return "Executive" }

// Node nests itself and is used to trip the depth guard.
type Node struct {
	ID   int64 `column:"_id"`
	Next *Node `column:"next"`
}

// Chain builds a linked list of n nodes.
func Chain(n int) *Node {
	var head *Node
	for i := n; i > 0; i-- {
		head = &Node{ID: int64(i), Next: head}
	}
	return head
}

// Register adds every fixture to r.
func Register(r *mapping.Registry) error {
	registrations := []struct {
		prototype any
		opts      []mapping.Option
	}{
		{Computer{}, []mapping.Option{
			mapping.WithConstructor(NewComputer, "_id", "name", "age", "model", "price"),
		}},
		{PetOwner{}, nil},
		{Adopter{}, []mapping.Option{
			mapping.WithConstructor(NewAdopter, "_id", "name", "animal"),
		}},
		{BookUser{}, []mapping.Option{
			mapping.WithConstructor(NewBookUser, "_id", "native_name", "books"),
		}},
		{Person{}, nil},
		{Worker{}, []mapping.Option{
			mapping.WithConverter("salary", mapping.ConverterFuncs{EncodeFunc: Cents, DecodeFunc: FromCents}),
		}},
		{Director{}, nil},
		{Node{}, nil},
	}
	for _, reg := range registrations {
		if _, err := r.Register(reg.prototype, reg.opts...); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a sealed registry holding every fixture.
func NewRegistry() *mapping.Registry {
	r := mapping.NewRegistry(nil)
	if err := Register(r); err != nil {
		panic(err)
	}
	r.Seal()
	return r
}
