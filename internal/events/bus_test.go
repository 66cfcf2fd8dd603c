package events

import (
	"context"
	"testing"
)

func TestSubscribeSinNombresRecibeTodo(t *testing.T) {
	bus := NewInMemoryBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(context.Background(), Event{Name: EventSessionStarted})
	bus.Publish(context.Background(), Event{Name: EventJobCompleted})

	first := <-ch
	second := <-ch
	if first.Name != EventSessionStarted || second.Name != EventJobCompleted {
		t.Fatalf("eventos recibidos: %q, %q", first.Name, second.Name)
	}
	if first.At.IsZero() {
		t.Fatalf("Publish no estampo At")
	}
}

func TestSubscribeFiltradoIgnoraOtrosEventos(t *testing.T) {
	bus := NewInMemoryBus()
	ch, cancel := bus.Subscribe(EventSessionCompleted)
	defer cancel()

	bus.Publish(context.Background(), Event{Name: EventSessionStarted})
	bus.Publish(context.Background(), Event{Name: EventSessionProgress})
	bus.Publish(context.Background(), Event{Name: EventSessionCompleted})

	got := <-ch
	if got.Name != EventSessionCompleted {
		t.Fatalf("evento filtrado mal: %q", got.Name)
	}
	select {
	case extra := <-ch:
		t.Fatalf("llego un evento fuera del filtro: %q", extra.Name)
	default:
	}
}

func TestPublishNoBloqueaConSuscriptorAtrasado(t *testing.T) {
	bus := NewInMemoryBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	// Mas eventos que el buffer del suscriptor: los que no entran se
	// descartan y Publish retorna igual.
	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(context.Background(), Event{Name: EventSessionProgress})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			if received != subscriberBuffer {
				t.Fatalf("eventos retenidos = %d, esperaba %d", received, subscriberBuffer)
			}
			return
		}
	}
}

func TestCancelCierraElCanalYEsIdempotente(t *testing.T) {
	bus := NewInMemoryBus()
	ch, cancel := bus.Subscribe(EventJobFailed)

	cancel()
	cancel()

	if _, open := <-ch; open {
		t.Fatalf("el canal sigue abierto tras cancelar")
	}

	// Publicar despues de cancelar no debe entrar en panico.
	bus.Publish(context.Background(), Event{Name: EventJobFailed})
}
