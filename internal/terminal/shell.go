// Package terminal is a line-oriented point-of-sale front end for a
// session.Controller.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/example/bakery-pos/internal/catalog"
	"github.com/example/bakery-pos/internal/checkout"
	"github.com/example/bakery-pos/internal/domain/customer"
	"github.com/example/bakery-pos/internal/gateway"
	"github.com/example/bakery-pos/internal/money"
	"github.com/example/bakery-pos/internal/session"
)

var errQuit = errors.New("quit")

const help = `comandos:
  add <id> [cantidad]   agregar producto
  inc <id> | dec <id>   subir o bajar cantidad
  rm <id>               quitar producto
  clear                 vaciar carrito
  pay                   cambiar método de pago
  field <campo> <valor> datos del cliente (field <campo> para borrar)
  checkout              enviar pedido
  show                  ver carrito
  quit                  salir`

type Shell struct {
	ctrl       *session.Controller
	dispatcher *session.Dispatcher
	products   catalog.Reader
	flow       customer.Flow
	fields     map[string]string
	out        io.Writer
}

func NewShell(ctrl *session.Controller, products catalog.Reader, flow customer.Flow, out io.Writer) *Shell {
	d := session.NewDispatcher()
	ctrl.Bind(d)
	return &Shell{
		ctrl:       ctrl,
		dispatcher: d,
		products:   products,
		flow:       flow,
		fields:     make(map[string]string),
		out:        out,
	}
}

// Run executes commands from in until EOF or quit.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintf(s.out, "Punto de venta (%s). Escriba help para ver los comandos.\n", s.flow)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		err := s.Exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(s.out, "error:", describe(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Exec runs one command line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "help", "?":
		fmt.Fprintln(s.out, help)
	case "quit", "exit":
		return errQuit
	case "show":
		PrintView(s.out, s.ctrl.View())
	case "add":
		return s.add(ctx, rest)
	case "inc", "dec":
		if len(rest) != 1 {
			return fmt.Errorf("uso: %s <id>", cmd)
		}
		delta := 1
		if cmd == "dec" {
			delta = -1
		}
		return s.dispatcher.Dispatch(ctx, session.Event{Kind: session.EventAdjustQuantity, ProductID: rest[0], Delta: delta})
	case "rm":
		if len(rest) != 1 {
			return errors.New("uso: rm <id>")
		}
		return s.dispatcher.Dispatch(ctx, session.Event{Kind: session.EventRemoveItem, ProductID: rest[0]})
	case "clear":
		return s.dispatcher.Dispatch(ctx, session.Event{Kind: session.EventClearCart})
	case "pay":
		return s.dispatcher.Dispatch(ctx, session.Event{Kind: session.EventPaymentMethodToggle})
	case "field":
		return s.setField(rest)
	case "checkout":
		return s.checkout(ctx)
	default:
		return fmt.Errorf("comando desconocido %q", cmd)
	}
	return nil
}

func (s *Shell) add(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("uso: add <id> [cantidad]")
	}
	qty := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("cantidad inválida %q", args[1])
		}
		qty = n
	}

	p, err := s.products.GetProduct(ctx, args[0])
	if err != nil {
		return err
	}
	if err := s.dispatcher.Dispatch(ctx, session.Event{
		Kind:      session.EventAddItem,
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
	}); err != nil {
		return err
	}
	if qty > 1 {
		return s.dispatcher.Dispatch(ctx, session.Event{Kind: session.EventAdjustQuantity, ProductID: p.ID, Delta: qty - 1})
	}
	return nil
}

func (s *Shell) setField(args []string) error {
	if len(args) == 0 {
		if len(s.fields) == 0 {
			fmt.Fprintln(s.out, "sin datos de cliente")
		}
		for _, k := range slices.Sorted(maps.Keys(s.fields)) {
			fmt.Fprintf(s.out, "%s: %s\n", k, s.fields[k])
		}
		return nil
	}
	if len(args) == 1 {
		delete(s.fields, args[0])
		return nil
	}
	s.fields[args[0]] = strings.Join(args[1:], " ")
	return nil
}

func (s *Shell) checkout(ctx context.Context) error {
	result, err := s.ctrl.OnCheckoutRequested(ctx, maps.Clone(s.fields))
	if err != nil {
		return err
	}
	s.fields = make(map[string]string)
	fmt.Fprintf(s.out, "pedido %s registrado, total $%s\n", result.OrderID, result.ConfirmedTotal.StringFixed(money.Places))
	return nil
}

// PrintView writes the cart as a table.
func PrintView(out io.Writer, vm session.ViewModel) {
	if vm.Submitting {
		fmt.Fprintln(out, "enviando pedido...")
		return
	}
	if len(vm.Lines) == 0 {
		fmt.Fprintf(out, "carrito vacío | pago: %s\n", vm.PaymentMethod)
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, l := range vm.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%d x\t$%s\t$%s\t\n",
			l.ProductID, l.Name, l.Quantity, l.UnitPrice.StringFixed(money.Places), l.Subtotal().StringFixed(money.Places))
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "%d artículos | total $%s | pago: %s\n", vm.ItemCount, vm.Total.StringFixed(money.Places), vm.PaymentMethod)
}

// Renderer prints every view change.
func Renderer(out io.Writer) session.RendererFunc {
	return func(vm session.ViewModel) { PrintView(out, vm) }
}

func describe(err error) string {
	var verr *customer.ValidationError
	var serr *gateway.SubmissionError
	switch {
	case errors.As(err, &verr):
		parts := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			parts = append(parts, f.Field+" ("+f.Reason+")")
		}
		return "revise los campos: " + strings.Join(parts, ", ")
	case errors.Is(err, checkout.ErrEmptyCart):
		return "el carrito está vacío"
	case errors.Is(err, session.ErrCheckoutInProgress):
		return "ya hay un pedido en curso"
	case errors.As(err, &serr):
		if serr.Message != "" {
			return "el pedido no se pudo registrar: " + serr.Message
		}
		return "el pedido no se pudo registrar, intente de nuevo"
	}
	return err.Error()
}
