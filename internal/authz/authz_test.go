package authz

import "testing"

func TestCanWriteRequiresSameClientAndRole(t *testing.T) {
	rt := DefaultRoleTable()

	ok := rt.CanWrite(Actor{ClientID: "c1", Role: "client-operator"}, "c1")
	if !ok.OK {
		t.Fatalf("expected operator to write within own client, got %+v", ok)
	}

	wrongClient := rt.CanWrite(Actor{ClientID: "c2", Role: "client-admin"}, "c1")
	if wrongClient.OK {
		t.Fatal("expected cross-client write to be denied")
	}

	viewer := rt.CanWrite(Actor{ClientID: "c1", Role: "client-viewer"}, "c1")
	if viewer.OK {
		t.Fatal("expected viewer role to be denied write")
	}
}

func TestCanReadAllowsAnyRoleInClient(t *testing.T) {
	rt := DefaultRoleTable()
	if !rt.CanRead(Actor{ClientID: "c1", Role: "client-viewer"}, "c1").OK {
		t.Fatal("expected viewer to read within own client")
	}
	if rt.CanRead(Actor{ClientID: "c2", Role: "client-admin"}, "c1").OK {
		t.Fatal("expected cross-client read to be denied")
	}
}

func TestCanManageChannelRequiresAdmin(t *testing.T) {
	rt := DefaultRoleTable()
	if !rt.CanManageChannel(Actor{ClientID: "c1", Role: "client-admin"}, "c1").OK {
		t.Fatal("expected client-admin to manage channel")
	}
	if rt.CanManageChannel(Actor{ClientID: "c1", Role: "client-operator"}, "c1").OK {
		t.Fatal("expected client-operator to be denied channel management")
	}
}
