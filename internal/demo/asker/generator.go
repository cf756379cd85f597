package asker

import (
	"fmt"
	"math/rand"
)

var (
	departments = []string{"Engineering", "Marketing", "Finance", "HR", "Sales"}
	employees   = []string{"Aarav", "Priya", "Raj", "Anjali", "Vikram", "Sneha", "Karan", "Meena", "Ravi", "Pooja"}
	newHires    = []string{"Ishaan", "Nisha", "Arjun", "Farah", "Dev", "Kiran"}
)

// Generator produces questions about the sample EMPLOYEE table.
type Generator struct {
	rnd        *rand.Rand
	writeRatio float64
}

func NewGenerator(seed int64, writeRatio float64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed)), writeRatio: writeRatio}
}

func (g *Generator) NextQuestion() string {
	if g.writeRatio > 0 && g.rnd.Float64() < g.writeRatio {
		return g.writeQuestion()
	}
	return g.readQuestion()
}

func (g *Generator) readQuestion() string {
	switch g.rnd.Intn(6) {
	case 0:
		return "How many employees are there?"
	case 1:
		return fmt.Sprintf("What is the average salary in %s?", pickOne(g.rnd, departments))
	case 2:
		return fmt.Sprintf("List all employees in %s", pickOne(g.rnd, departments))
	case 3:
		return fmt.Sprintf("Show employees earning more than %d", 55000+g.rnd.Intn(7)*5000)
	case 4:
		return fmt.Sprintf("Find the salary of %s", pickOne(g.rnd, employees))
	default:
		return "Describe the EMPLOYEE table"
	}
}

func (g *Generator) writeQuestion() string {
	if g.rnd.Intn(2) == 0 {
		return fmt.Sprintf("Add employee %s to %s with salary %d",
			pickOne(g.rnd, newHires), pickOne(g.rnd, departments), 50000+g.rnd.Intn(40)*1000)
	}
	return fmt.Sprintf("Update the salary of %s to %d", pickOne(g.rnd, employees), 55000+g.rnd.Intn(40)*1000)
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
